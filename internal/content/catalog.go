// Package content provides the menu/search content backing the dialogue.
// Catalogs come from semicolon-delimited CSV files; free-text answers go
// through an LLM client with per-topic context.
package content

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eleccia/chatbot-engine/internal/llm"
	"github.com/eleccia/chatbot-engine/internal/model"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"github.com/eleccia/chatbot-engine/pkg/metrics"
)

const (
	mainServicesFile   = "PRINCIPALES.csv"
	searchServicesFile = "SERVICIOS_DIGITALES.csv"
)

// Catalog serves digital-service listings, institutional info and free-text
// answers. Safe for concurrent use; Reload swaps the CSV-backed data.
type Catalog struct {
	dir       string
	llmClient llm.Client
	logger    *logger.Logger

	mu            sync.RWMutex
	mainServices  []model.ServiceInfo
	allServices   []model.ServiceInfo
}

// NewCatalog loads the CSV catalogs from dir. Missing files leave the
// corresponding listing empty; the dialogue degrades to "information
// unavailable" rather than failing startup.
func NewCatalog(dir string, llmClient llm.Client, log *logger.Logger) *Catalog {
	c := &Catalog{
		dir:       dir,
		llmClient: llmClient,
		logger:    log,
	}
	if err := c.Reload(); err != nil {
		log.Warn("content catalogs not loaded: " + err.Error())
	}
	return c
}

// Reload re-reads the CSV catalogs from disk.
func (c *Catalog) Reload() error {
	main, errMain := loadServicesCSV(filepath.Join(c.dir, mainServicesFile))
	all, errAll := loadServicesCSV(filepath.Join(c.dir, searchServicesFile))

	c.mu.Lock()
	if errMain == nil {
		c.mainServices = main
	}
	if errAll == nil {
		c.allServices = all
	}
	c.mu.Unlock()

	if errMain != nil {
		return fmt.Errorf("load %s: %w", mainServicesFile, errMain)
	}
	if errAll != nil {
		return fmt.Errorf("load %s: %w", searchServicesFile, errAll)
	}
	return nil
}

// MainServices returns the most-used digital services, in menu order.
func (c *Catalog) MainServices() []model.ServiceInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.ServiceInfo(nil), c.mainServices...)
}

// SearchServices ranks the service catalog against a free-text query and
// returns the topK best matches. Entries with no term overlap are dropped.
func (c *Catalog) SearchServices(ctx context.Context, query string, topK int) ([]model.ServiceInfo, error) {
	start := time.Now()

	c.mu.RLock()
	services := c.allServices
	c.mu.RUnlock()

	terms := tokenize(query)
	if len(terms) == 0 || len(services) == 0 {
		return nil, nil
	}

	type scored struct {
		svc   model.ServiceInfo
		score float64
	}
	var matches []scored
	for _, svc := range services {
		s := overlapScore(terms, tokenize(svc.Nombre+" "+svc.Descripcion))
		if s > 0 {
			matches = append(matches, scored{svc: svc, score: s})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}

	out := make([]model.ServiceInfo, len(matches))
	for i, m := range matches {
		out[i] = m.svc
	}

	metrics.RecordProviderCall("service_search", "success", time.Since(start).Seconds())
	return out, nil
}

// Answer sends a free-text question to the LLM, enriched with the context
// registered for the chosen topic.
func (c *Catalog) Answer(ctx context.Context, question, topic string) (string, error) {
	if c.llmClient == nil {
		return "", fmt.Errorf("no LLM client configured")
	}

	start := time.Now()
	reply, err := llm.Answer(ctx, c.llmClient, question, topicContext[topic])
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordProviderCall("llm_answer", status, time.Since(start).Seconds())

	if err != nil {
		return "", fmt.Errorf("LLM answer failed: %w", err)
	}
	return reply, nil
}

// PlenoMembers returns the institutional board listing.
func (c *Catalog) PlenoMembers() []model.PlenoMember {
	return append([]model.PlenoMember(nil), plenoMiembros...)
}

// InstitutionalInfo returns the static text for a topic, if registered.
func (c *Catalog) InstitutionalInfo(topic string) (string, bool) {
	text, ok := institucional[topic]
	return text, ok
}

func loadServicesCSV(path string) ([]model.ServiceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	// First row is the header: TXNOMBRE;TXDESCRIPCIONCORTA;TXENLACE.
	col := headerIndex(records[0])
	var out []model.ServiceInfo
	for _, row := range records[1:] {
		svc := model.ServiceInfo{
			Nombre:      field(row, col["TXNOMBRE"]),
			Descripcion: field(row, col["TXDESCRIPCIONCORTA"]),
			Enlace:      field(row, col["TXENLACE"]),
		}
		if svc.Nombre != "" {
			out = append(out, svc)
		}
	}
	return out, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	return idx
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func tokenize(s string) []string {
	var out []string
	for _, t := range strings.Fields(strings.ToLower(s)) {
		t = strings.Trim(t, ".,;:¿?¡!\"'()")
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

func overlapScore(query, doc []string) float64 {
	if len(query) == 0 {
		return 0
	}
	docSet := make(map[string]struct{}, len(doc))
	for _, t := range doc {
		docSet[t] = struct{}{}
	}
	hits := 0
	for _, t := range query {
		if _, ok := docSet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
