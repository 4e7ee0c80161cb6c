package service

import "github.com/eleccia/chatbot-engine/internal/model"

// staticMenu is a fixed navigation screen: the text shown to the user and
// a map from accepted numeric input to the canonical choice key.
type staticMenu struct {
	name    string
	text    string
	options map[string]string
}

const mainMenuText = `📋 **Menú Principal**

1️⃣ Procesos Electorales
2️⃣ Organizaciones Políticas
3️⃣ Información Institucional
4️⃣ Servicios Digitales

Escribe el número de la opción que deseas consultar:`

var staticMenus = map[model.Stage]staticMenu{
	model.StageMain: {
		name: "opciones principales",
		text: mainMenuText,
		options: map[string]string{
			"1": "procesos_electorales",
			"2": "organizaciones_politicas",
			"3": "informacion_institucional",
			"4": "servicios_digitales",
		},
	},
	model.StageProcesosElectorales: {
		name: "procesos electorales",
		text: `🗳️ **Procesos Electorales**

1️⃣ Cronograma Electoral
2️⃣ Consulta tu Político

Escribe el número de la opción que deseas consultar:`,
		options: map[string]string{
			"1": "cronograma_electoral",
			"2": "consulta_politico",
		},
	},
	model.StageOrganizacionesPoliticas: {
		name: "organizaciones políticas",
		text: `🏛️ **Organizaciones Políticas**

1️⃣ Organizaciones Políticas (información general)
2️⃣ Consulta de Afiliación

Escribe el número de la opción que deseas consultar:`,
		options: map[string]string{
			"1": "organizacion_politica",
			"2": "consulta_afiliacion",
		},
	},
	model.StageInformacionInstitucional: {
		name: "información institucional",
		text: `🏢 **Información Institucional**

1️⃣ Pleno del JNE
2️⃣ Funcionarios
3️⃣ Jurados Electorales Especiales (JEE)
4️⃣ Sedes del JNE

Escribe el número de la opción que deseas consultar:`,
		options: map[string]string{
			"1": "pleno",
			"2": "funcionarios",
			"3": "jee",
			"4": "sedes",
		},
	},
	model.StageServiciosDigitales: {
		name: "servicios digitales",
		text: `💻 **Servicios Digitales**

1️⃣ Servicios al Ciudadano
2️⃣ Búsqueda de Trámites

Escribe el número de la opción que deseas consultar:`,
		options: map[string]string{
			"1": "servicios_ciudadano",
			"2": "tramite",
		},
	},
}

// submenuStages maps a menu choice to the stage whose menu it opens.
var submenuStages = map[string]model.Stage{
	"procesos_electorales":      model.StageProcesosElectorales,
	"organizaciones_politicas":  model.StageOrganizacionesPoliticas,
	"informacion_institucional": model.StageInformacionInstitucional,
	"servicios_digitales":       model.StageServiciosDigitales,
}

// infoTopics are menu choices answered directly from static institutional
// content, without a provider round-trip.
var infoTopics = map[string]struct{}{
	"organizacion_politica": {},
	"consulta_afiliacion":   {},
	"funcionarios":          {},
	"jee":                   {},
	"sedes":                 {},
}

// electoralProcesses the cronograma flow offers, most recent first.
var electoralProcesses = []string{"EG.2026", "EMC.2025", "ERM.2022", "EG.2021"}

const otrosProcesosText = `🗳️ **Otros Procesos Electorales**

Para consultar el cronograma de procesos electorales anteriores, visita la plataforma oficial:

🔗 https://plataformaelectoral.jne.gob.pe

Ahí encontrarás el detalle de todos los procesos electorales del Perú.`

func cronogramaMenuText() string {
	items := make([]string, 0, len(electoralProcesses)+1)
	items = append(items, electoralProcesses...)
	items = append(items, "Otros procesos electorales")
	return numberedList("🗓️ **Cronograma Electoral**\n\nSelecciona el proceso electoral que deseas consultar:", items)
}
