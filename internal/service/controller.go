package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eleccia/chatbot-engine/internal/model"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"go.uber.org/zap"
)

// Selection lists stored on the session are capped so a runaway query can
// never bloat the stored context.
const maxSelectionItems = 10

// maxFlowEntries bounds the navigation breadcrumb kept on the session.
const maxFlowEntries = 50

// ContentProvider serves menu content and free-text answers.
type ContentProvider interface {
	MainServices() []model.ServiceInfo
	SearchServices(ctx context.Context, query string, topK int) ([]model.ServiceInfo, error)
	PlenoMembers() []model.PlenoMember
	InstitutionalInfo(topic string) (string, bool)
	Answer(ctx context.Context, question, topic string) (string, error)
}

// ElectoralRepository answers candidate and milestone lookups.
type ElectoralRepository interface {
	FindCandidates(ctx context.Context, query string) ([]model.Candidate, error)
	FindCandidatesBySurnames(ctx context.Context, nombres, apellidoPaterno, apellidoMaterno string) ([]model.Candidate, error)
	ElectionsForCandidate(ctx context.Context, c model.Candidate) ([]string, error)
	CandidateElectionDetail(ctx context.Context, c model.Candidate, eleccion string) (string, error)
	SearchMilestones(ctx context.Context, proceso, query string) ([]model.Milestone, error)
}

// turnResult is the controller's verdict for one user message. When End is
// set the reply is the farewell and Reason records why the dialogue closed.
type turnResult struct {
	Reply  string
	End    bool
	Reason string
}

type stageHandler func(ctx context.Context, sess *model.Session, text string) turnResult

// Controller runs the dialogue state machine. It mutates the session it is
// handed (stage, context, flow) but never touches the transcript or the
// store; that is the engine's job.
type Controller struct {
	content  ContentProvider
	repo     ElectoralRepository
	logger   *logger.Logger
	timeout  time.Duration
	handlers map[model.Stage]stageHandler
}

func NewController(content ContentProvider, repo ElectoralRepository, timeout time.Duration, log *logger.Logger) *Controller {
	c := &Controller{
		content: content,
		repo:    repo,
		logger:  log,
		timeout: timeout,
	}
	c.handlers = map[model.Stage]stageHandler{
		model.StageMain:                      c.handleStaticMenu,
		model.StageProcesosElectorales:       c.handleStaticMenu,
		model.StageOrganizacionesPoliticas:   c.handleStaticMenu,
		model.StageInformacionInstitucional:  c.handleStaticMenu,
		model.StageServiciosDigitales:        c.handleStaticMenu,
		model.StagePleno:                     c.handlePlenoSelection,
		model.StageServiciosCiudadano:        c.handleServiceSelection,
		model.StageAwaitingQuestion:          c.handleQuestion,
		model.StageAwaitingTramiteQuery:      c.handleTramiteQuery,
		model.StageAwaitingTramiteSelection:  c.handleServiceSelection,
		model.StageAwaitingProcesoElectoral:  c.handleProcesoSelection,
		model.StageAwaitingHitoConsulta:      c.handleHitoQuery,
		model.StageAwaitingHitoSelection:     c.handleHitoSelection,
		model.StageAwaitingPoliticoNombres:   c.handlePoliticoNombres,
		model.StageAwaitingSegundoApellido:   c.handleSegundoApellido,
		model.StageAwaitingCandidatoSelection: c.handleCandidatoSelection,
		model.StageAwaitingEleccionSelection: c.handleEleccionSelection,
		model.StageAwaitingAnotherQuestion:   c.handleAnotherQuestion,
	}
	return c
}

// Handle processes one user message against the session's current stage.
// Global commands win over any stage-specific interpretation.
func (c *Controller) Handle(ctx context.Context, sess *model.Session, text string) turnResult {
	if isExitCommand(text) {
		return turnResult{Reply: msgDespedida, End: true, Reason: model.ReasonUserExit}
	}
	if isMenuCommand(text) {
		return c.gotoMain(sess, msgRegresoMenu)
	}
	h, ok := c.handlers[sess.Stage]
	if !ok {
		// Stale or corrupted stage from an older session: recover to main.
		c.logger.WithUser(sess.UserID).Warn("unknown stage, resetting session", zap.String("stage", string(sess.Stage)))
		return c.gotoMain(sess, msgRegresoMenu)
	}
	return h(ctx, sess, text)
}

func (c *Controller) gotoMain(sess *model.Session, prefix string) turnResult {
	sess.Stage = model.StageMain
	sess.Context.ClearSelections()
	reply := mainMenuText
	if prefix != "" {
		reply = prefix + "\n\n" + mainMenuText
	}
	return turnResult{Reply: reply}
}

func (c *Controller) providerCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) recordFlow(sess *model.Session, choice string) {
	sess.Context.Flow = append(sess.Context.Flow, choice)
	if len(sess.Context.Flow) > maxFlowEntries {
		sess.Context.Flow = sess.Context.Flow[len(sess.Context.Flow)-maxFlowEntries:]
	}
}

// --- static navigation menus ---

func (c *Controller) handleStaticMenu(ctx context.Context, sess *model.Session, text string) turnResult {
	menu := staticMenus[sess.Stage]
	choice, ok := menu.options[strings.TrimSpace(text)]
	if !ok {
		return turnResult{Reply: invalidOptionMessage(menu.name) + "\n\n" + menu.text}
	}
	c.recordFlow(sess, choice)

	if next, isSubmenu := submenuStages[choice]; isSubmenu {
		sess.Stage = next
		return turnResult{Reply: staticMenus[next].text}
	}

	switch choice {
	case "servicios_ciudadano":
		services := c.content.MainServices()
		if len(services) == 0 {
			return c.gotoMain(sess, msgInfoNoDisponible)
		}
		sess.Context.Servicios = boundServices(services)
		sess.Stage = model.StageServiciosCiudadano
		return turnResult{Reply: servicesMenu("🏛️ **Servicios al Ciudadano**\n\nSelecciona el servicio que deseas consultar:", sess.Context.Servicios)}

	case "tramite":
		sess.Stage = model.StageAwaitingTramiteQuery
		return turnResult{Reply: msgTramitePrompt}

	case "pleno":
		members := c.content.PlenoMembers()
		if len(members) == 0 {
			return c.gotoMain(sess, msgInfoNoDisponible)
		}
		sess.Stage = model.StagePleno
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = fmt.Sprintf("%s — %s", m.Cargo, m.Nombre)
		}
		return turnResult{Reply: numberedList("⚖️ **Pleno del JNE**\n\nSelecciona el miembro que deseas consultar:", names)}

	case "cronograma_electoral":
		sess.Stage = model.StageAwaitingProcesoElectoral
		return turnResult{Reply: cronogramaMenuText()}

	case "consulta_politico":
		sess.Stage = model.StageAwaitingPoliticoNombres
		return turnResult{Reply: msgPoliticoPrompt}
	}

	if _, isInfo := infoTopics[choice]; isInfo {
		info, ok := c.content.InstitutionalInfo(choice)
		if !ok {
			return c.gotoMain(sess, msgInfoNoDisponible)
		}
		sess.Context.FinalChoice = choice
		sess.Stage = model.StageAwaitingAnotherQuestion
		return turnResult{Reply: info + msgOtraConsulta}
	}

	// Remaining choices open a free-text question against the provider.
	sess.Context.FinalChoice = choice
	sess.Stage = model.StageAwaitingQuestion
	return turnResult{Reply: selectionPrompt(choice)}
}

// --- free-text question against the LLM provider ---

func (c *Controller) handleQuestion(ctx context.Context, sess *model.Session, text string) turnResult {
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	answer, err := c.content.Answer(pctx, text, sess.Context.FinalChoice)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("provider answer failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	sess.Stage = model.StageAwaitingAnotherQuestion
	return turnResult{Reply: answer + msgOtraConsulta}
}

// --- trámite search flow ---

func (c *Controller) handleTramiteQuery(ctx context.Context, sess *model.Session, text string) turnResult {
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	services, err := c.content.SearchServices(pctx, text, maxSelectionItems)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("service search failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if len(services) == 0 {
		return c.gotoMain(sess, "No se encontraron servicios relevantes para tu consulta. Intenta describirlo con otras palabras.")
	}
	sess.Context.Servicios = boundServices(services)
	sess.Stage = model.StageAwaitingTramiteSelection
	return turnResult{Reply: servicesMenu("🔍 **Servicios encontrados**\n\nSelecciona el servicio que deseas consultar:", sess.Context.Servicios)}
}

func (c *Controller) handleServiceSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	services := sess.Context.Servicios
	if len(services) == 0 {
		return c.gotoMain(sess, msgInfoNoDisponible)
	}
	idx, ok := parseSelection(text, len(services))
	if !ok {
		return turnResult{Reply: invalidRangeMessage(len(services))}
	}
	svc := services[idx]
	sess.Context.FinalChoice = svc.Nombre
	sess.Context.ClearSelections()
	sess.Stage = model.StageAwaitingAnotherQuestion
	return turnResult{Reply: serviceDetail(svc) + msgOtraConsulta}
}

// --- pleno ---

func (c *Controller) handlePlenoSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	members := c.content.PlenoMembers()
	if len(members) == 0 {
		return c.gotoMain(sess, msgInfoNoDisponible)
	}
	idx, ok := parseSelection(text, len(members))
	if !ok {
		return turnResult{Reply: invalidRangeMessage(len(members))}
	}
	sess.Context.FinalChoice = "pleno"
	sess.Stage = model.StageAwaitingAnotherQuestion
	return turnResult{Reply: plenoDetail(members[idx]) + msgOtraConsulta}
}

// --- cronograma electoral flow ---

func (c *Controller) handleProcesoSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	total := len(electoralProcesses) + 1
	idx, ok := parseSelection(text, total)
	if !ok {
		return turnResult{Reply: invalidRangeMessage(total)}
	}
	if idx == len(electoralProcesses) {
		sess.Context.FinalChoice = "otros_procesos_electorales"
		sess.Stage = model.StageAwaitingAnotherQuestion
		return turnResult{Reply: otrosProcesosText + msgOtraConsulta}
	}
	sess.Context.ProcesoElectoral = electoralProcesses[idx]
	sess.Stage = model.StageAwaitingHitoConsulta
	return turnResult{Reply: fmt.Sprintf("📅 Has seleccionado **%s**.\n\n¿Qué hito del cronograma deseas consultar? Por ejemplo: 'inscripción de candidatos', 'fecha de elecciones', 'sorteo de miembros de mesa'.", sess.Context.ProcesoElectoral)}
}

func (c *Controller) handleHitoQuery(ctx context.Context, sess *model.Session, text string) turnResult {
	proceso := sess.Context.ProcesoElectoral
	if proceso == "" {
		return c.gotoMain(sess, "Error: no se encontró el proceso electoral seleccionado. Volvamos a empezar.")
	}
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	hitos, err := c.repo.SearchMilestones(pctx, proceso, text)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("milestone search failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if len(hitos) == 0 {
		return c.gotoMain(sess, fmt.Sprintf("No se encontraron hitos del cronograma de %s para tu consulta.", proceso))
	}
	if len(hitos) > maxSelectionItems {
		hitos = hitos[:maxSelectionItems]
	}
	sess.Context.Hitos = hitos
	sess.Stage = model.StageAwaitingHitoSelection
	names := make([]string, len(hitos))
	for i, h := range hitos {
		names[i] = fmt.Sprintf("%s (%s)", h.Nombre, h.Fecha)
	}
	return turnResult{Reply: numberedList("📅 **Hitos encontrados**\n\nSelecciona el hito que deseas consultar:", names)}
}

func (c *Controller) handleHitoSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	hitos := sess.Context.Hitos
	if len(hitos) == 0 {
		return c.gotoMain(sess, msgInfoNoDisponible)
	}
	idx, ok := parseSelection(text, len(hitos))
	if !ok {
		return turnResult{Reply: invalidRangeMessage(len(hitos))}
	}
	hito := hitos[idx]
	sess.Context.FinalChoice = "hito_electoral"
	sess.Context.ClearSelections()
	sess.Stage = model.StageAwaitingAnotherQuestion
	return turnResult{Reply: milestoneDetail(hito) + msgOtraConsulta}
}

// --- consulta tu político flow ---

func (c *Controller) handlePoliticoNombres(ctx context.Context, sess *model.Session, text string) turnResult {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) < 2 {
		return turnResult{Reply: "Por favor, proporciona al menos un nombre y un apellido. Por ejemplo: 'Juan Pérez'."}
	}
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	candidatos, err := c.repo.FindCandidates(pctx, text)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("candidate search failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if len(candidatos) == 0 {
		return c.gotoMain(sess, "No se encontraron candidatos con ese nombre. Puedes consultar el historial político completo en 🔗 https://infogob.jne.gob.pe")
	}
	if len(candidatos) > maxSelectionItems {
		// Too many homonyms: ask for the second surname to narrow down.
		sess.Context.NombresPolitico = strings.Join(words[:len(words)-1], " ")
		sess.Context.PrimerApellido = words[len(words)-1]
		sess.Stage = model.StageAwaitingSegundoApellido
		return turnResult{Reply: fmt.Sprintf("Se encontraron %d candidatos con ese nombre. Por favor, proporciona el segundo apellido para afinar la búsqueda:", len(candidatos))}
	}
	sess.Context.Candidatos = candidatos
	sess.Stage = model.StageAwaitingCandidatoSelection
	return turnResult{Reply: candidatesMenu(candidatos)}
}

func (c *Controller) handleSegundoApellido(ctx context.Context, sess *model.Session, text string) turnResult {
	words := strings.Fields(strings.TrimSpace(text))
	if len(words) != 1 {
		return turnResult{Reply: "Por favor, ingresa SOLO el segundo apellido (una sola palabra):"}
	}
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	candidatos, err := c.repo.FindCandidatesBySurnames(pctx, sess.Context.NombresPolitico, sess.Context.PrimerApellido, words[0])
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("candidate surname search failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if len(candidatos) == 0 {
		return c.gotoMain(sess, "No se encontraron candidatos con esos apellidos. Puedes consultar el historial político completo en 🔗 https://infogob.jne.gob.pe")
	}
	if len(candidatos) > maxSelectionItems {
		candidatos = candidatos[:maxSelectionItems]
	}
	sess.Context.Candidatos = candidatos
	sess.Stage = model.StageAwaitingCandidatoSelection
	return turnResult{Reply: candidatesMenu(candidatos)}
}

func (c *Controller) handleCandidatoSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	candidatos := sess.Context.Candidatos
	if len(candidatos) == 0 {
		return c.gotoMain(sess, msgInfoNoDisponible)
	}
	idx, ok := parseSelection(text, len(candidatos))
	if !ok {
		return turnResult{Reply: invalidRangeMessage(len(candidatos))}
	}
	candidato := candidatos[idx]
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	elecciones, err := c.repo.ElectionsForCandidate(pctx, candidato)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("elections lookup failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if len(elecciones) == 0 {
		return c.gotoMain(sess, fmt.Sprintf("No se encontraron elecciones registradas para %s.", candidato.FullName()))
	}
	if len(elecciones) > maxSelectionItems {
		elecciones = elecciones[:maxSelectionItems]
	}
	sess.Context.Candidato = &candidato
	sess.Context.Elecciones = elecciones
	sess.Stage = model.StageAwaitingEleccionSelection
	return turnResult{Reply: numberedList(fmt.Sprintf("🗳️ **Elecciones de %s**\n\nSelecciona la elección que deseas consultar:", candidato.FullName()), elecciones)}
}

func (c *Controller) handleEleccionSelection(ctx context.Context, sess *model.Session, text string) turnResult {
	if sess.Context.Candidato == nil || len(sess.Context.Elecciones) == 0 {
		return c.gotoMain(sess, msgInfoNoDisponible)
	}
	idx, ok := parseSelection(text, len(sess.Context.Elecciones))
	if !ok {
		return turnResult{Reply: invalidRangeMessage(len(sess.Context.Elecciones))}
	}
	eleccion := sess.Context.Elecciones[idx]
	candidato := *sess.Context.Candidato
	pctx, cancel := c.providerCtx(ctx)
	defer cancel()
	detail, err := c.repo.CandidateElectionDetail(pctx, candidato, eleccion)
	if err != nil {
		c.logger.WithUser(sess.UserID).Error("candidacy detail lookup failed", zap.Error(err))
		return c.gotoMain(sess, msgApologia)
	}
	if detail == "" {
		return c.gotoMain(sess, fmt.Sprintf("No se encontró información detallada de %s en %s.", candidato.FullName(), eleccion))
	}
	sess.Context.FinalChoice = "consulta_politico"
	sess.Context.ClearSelections()
	sess.Stage = model.StageAwaitingAnotherQuestion
	return turnResult{Reply: detail + msgOtraConsulta}
}

// --- closing question ---

func (c *Controller) handleAnotherQuestion(ctx context.Context, sess *model.Session, text string) turnResult {
	switch normalizeCommand(text) {
	case "si", "sí", "yes", "y", "1":
		return c.gotoMain(sess, msgRegresoMenu)
	case "no", "n", "0":
		return turnResult{Reply: msgDespedida, End: true, Reason: model.ReasonUserNoMore}
	default:
		return turnResult{Reply: msgRespondeSiNo}
	}
}

// --- helpers ---

// parseSelection interprets text as a strict 1-based index into a list of n
// items and returns the 0-based index.
func parseSelection(text string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

func boundServices(services []model.ServiceInfo) []model.ServiceInfo {
	if len(services) > maxSelectionItems {
		return services[:maxSelectionItems]
	}
	return services
}

func servicesMenu(title string, services []model.ServiceInfo) string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Nombre
	}
	return numberedList(title, names)
}

func candidatesMenu(candidatos []model.Candidate) string {
	names := make([]string, len(candidatos))
	for i, c := range candidatos {
		names[i] = c.FullName()
	}
	return numberedList("👤 **Candidatos encontrados**\n\nSelecciona el candidato que deseas consultar:", names)
}
