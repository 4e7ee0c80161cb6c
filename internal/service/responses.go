package service

import (
	"fmt"
	"strings"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// User-facing texts. The assistant speaks Spanish; identifiers stay English.

const msgComandos = `💡 **Comandos útiles:**
• Escribe **'menu'** para volver al menú principal en cualquier momento
• Escribe **'adios'** para cerrar la conversación y finalizar`

const msgBienvenida = `🤖 **¡Hola! Soy ELECCIA, tu asistente virtual del JNE**

👋 **Bienvenido/a al Jurado Nacional de Elecciones**

¿En qué puedo ayudarte hoy?

` + msgComandos

const msgRegresoMenu = `🔄 **¡Perfecto! Volvamos al menú principal**

🤖 **ELECCIA** está aquí para ayudarte. ¿En qué más puedo asistirte?

` + msgComandos

const msgDespedida = `🤖 **¡Ha sido un placer ayudarte!**

👋 **ELECCIA** se despide de ti

💡 Recuerda que siempre puedes volver cuando tengas más consultas sobre el JNE.

¡Que tengas un excelente día! 👋`

const msgOtraConsulta = "\n\n¿Tienes otra consulta? (responde 'si' o 'no'):"

const msgApologia = "Lo siento, ha ocurrido un error al procesar tu consulta. Por favor, intenta de nuevo."

const msgInfoNoDisponible = "La información no está disponible en este momento. Esto puede deberse a un problema temporal. ¿Quieres consultar otra información?"

const msgTramitePrompt = "Por favor, describe qué tipo de trámite o servicio estás buscando. Por ejemplo: 'Necesito información sobre multas electorales', 'Quiero saber cómo afiliarme a un partido político' o describe tu consulta con más detalle."

const msgPoliticoPrompt = "👤 **Consulta tu Político**\n\nPor favor, proporciona el nombre del político que deseas consultar (mínimo 1 nombre y 1 apellido):"

const msgRespondeSiNo = "Por favor, responde 'si' o 'no' si tienes otra consulta:"

// Terminate synonyms accepted from any stage, case-insensitive and trimmed.
var exitCommands = map[string]struct{}{
	"salir":    {},
	"cancelar": {},
	"exit":     {},
	"quit":     {},
	"cancel":   {},
	"volver":   {},
	"adios":    {},
	"adiós":    {},
}

func normalizeCommand(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func isMenuCommand(text string) bool {
	return normalizeCommand(text) == "menu"
}

func isExitCommand(text string) bool {
	_, ok := exitCommands[normalizeCommand(text)]
	return ok
}

func invalidRangeMessage(n int) string {
	return fmt.Sprintf("Opción no válida. Por favor, elige un número entre 1 y %d o escribe 'menu' para volver al menú principal.", n)
}

func invalidOptionMessage(menuName string) string {
	return fmt.Sprintf("Por favor, elige una opción válida del menú de %s o escribe 'menu' para volver al menú principal.", menuName)
}

func selectionPrompt(choice string) string {
	return fmt.Sprintf("Has seleccionado %s. Ahora envía tu pregunta:", choice)
}

func serviceDetail(svc model.ServiceInfo) string {
	return fmt.Sprintf("📋 **%s**\n\n📝 **Descripción:** %s\n\n🔗 **Enlace:** %s", svc.Nombre, svc.Descripcion, svc.Enlace)
}

func plenoDetail(m model.PlenoMember) string {
	return fmt.Sprintf("👨‍⚖️ **%s**\n\n👤 **Nombre:** %s\n\n📝 **Descripción:** %s", m.Cargo, m.Nombre, m.Descripcion)
}

func milestoneDetail(m model.Milestone) string {
	detail := fmt.Sprintf("📅 **%s**\n\n🗳️ **Proceso:** %s\n📆 **Fecha:** %s", m.Nombre, m.Proceso, m.Fecha)
	if m.Descripcion != "" {
		detail += "\n📝 " + m.Descripcion
	}
	return detail
}

func numberedList(title string, items []string) string {
	var b strings.Builder
	b.WriteString(title)
	for i, item := range items {
		fmt.Fprintf(&b, "\n%d. %s", i+1, item)
	}
	b.WriteString("\n\nEscribe el número de tu elección o 'menu' para volver al menú principal.")
	return b.String()
}
