package content

import "github.com/eleccia/chatbot-engine/internal/model"

// Per-topic context injected into LLM prompts for free-text questions.
var topicContext = map[string]string{
	"cronograma_electoral": "Las elecciones internas se realizarán el 15 de septiembre y la campaña oficial inicia el 1 de octubre.",
	"jee":                  "Contamos con jurados especiales en las provincias de Cajamarca, Arequipa, Lima y Trujillo.",
	"alianzas_politicas":   "Actualmente tenemos alianza con el Movimiento Verde y la Unión Ciudadana.",
	"afiliados":            "La organización cuenta con 12,450 afiliados inscritos hasta julio de 2025.",
	"personeros":           "Se han acreditado 1,200 personeros para la supervisión de mesas de votación.",
	"candidatos":           "Se presentarán 180 candidatos a alcaldías y 25 a gobiernos regionales.",
	"autoridades_electas":  "En las últimas elecciones ganamos 5 gobiernos regionales y 40 alcaldías.",
	"servicios_ciudadano":  "Existen 15 resoluciones del JNE que han establecido precedentes en materia electoral.",
	"tramite":              "La oficina central cuenta con 85 trabajadores administrativos distribuidos en 10 áreas.",
	"pleno":                "El pleno del JNE está conformado por 5 miembros titulares y 2 suplentes, todos expertos en derecho electoral y constitucional.",
	"funcionarios":         "El JNE cuenta con un equipo de funcionarios especializados distribuidos en diferentes direcciones y oficinas regionales.",
	"sedes":                "El JNE tiene presencia en Lima (sede central), Cusco, Nazca y cuenta con un Museo Electoral, además de oficinas desconcentradas en todo el país.",
}

// Static institutional texts served directly from the information menu.
var institucional = map[string]string{
	"funcionarios": "👥 **Funcionarios del JNE**\n\nEl JNE cuenta con un equipo de funcionarios especializados distribuidos en diferentes direcciones y oficinas regionales, encabezado por la Dirección Central de Gestión Institucional.",
	"jee":          "⚖️ **Jurados Electorales Especiales**\n\nContamos con jurados especiales en las provincias de Cajamarca, Arequipa, Lima y Trujillo, activados según el cronograma de cada proceso electoral.",
	"sedes":        "🏛️ **Sedes del JNE**\n\nEl JNE tiene presencia en Lima (sede central), Cusco y Nazca, cuenta con un Museo Electoral y oficinas desconcentradas en todo el país.",
	"organizacion_politica": "🗳️ **Tipos de Organizaciones Políticas**\n\nPartidos políticos de alcance nacional, movimientos regionales y alianzas electorales inscritas ante el Registro de Organizaciones Políticas.",
	"consulta_afiliacion":   "📋 **Consulta de Afiliación**\n\nPuedes verificar tu afiliación a una organización política en el portal del Registro de Organizaciones Políticas: https://sroppublico.jne.gob.pe/Consulta/Afiliado",
}

var plenoMiembros = []model.PlenoMember{
	{Cargo: "Presidente del Pleno", Nombre: "Roberto Burneo Bermejo", Descripcion: "Preside el Pleno del JNE y representa a la institución."},
	{Cargo: "Miembro Titular - Fiscalía de la Nación", Nombre: "Carmen Velarde Koechlin", Descripcion: "Representante designada por la Junta de Fiscales Supremos."},
	{Cargo: "Miembro Titular - Colegio de Abogados de Lima", Nombre: "Jorge Salas Arenas", Descripcion: "Representante electo por el Colegio de Abogados de Lima."},
	{Cargo: "Miembro Titular - Universidades Públicas", Nombre: "Elvia Barrios Alvarado", Descripcion: "Representante de los decanos de las facultades de Derecho de las universidades públicas."},
	{Cargo: "Miembro Titular - Universidades Privadas", Nombre: "Luis Arce Córdova", Descripcion: "Representante de los decanos de las facultades de Derecho de las universidades privadas."},
}
