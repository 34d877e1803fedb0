package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/extractor"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu       sync.Mutex
	texts    []string
	roles    []driven.Role
	embedErr error
	model    string
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string, role driven.Role) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.texts = append(m.texts, texts...)
	m.roles = append(m.roles, role)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)%7 + 1), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int {
	return 2
}

func (m *mockEmbedder) ModelName() string {
	if m.model == "" {
		return "mock-e5"
	}
	return m.model
}

func (m *mockEmbedder) Ping(context.Context) error {
	return m.embedErr
}

func (m *mockEmbedder) Close() error {
	return nil
}

// mockSectionStore implements driven.SectionStore with canned hits.
type mockSectionStore struct {
	hits     []domain.SectionHit
	queryErr error

	lastTopK   int
	lastFilter string
	lastModel  string
}

func (m *mockSectionStore) Upsert(context.Context, []domain.Section, [][]float32, string) error {
	return nil
}

func (m *mockSectionStore) DeleteByModel(context.Context, string) (int, error) {
	return 0, nil
}

func (m *mockSectionStore) Query(
	_ context.Context, _ []float32, embeddingModel string, topK int, modelFilter string,
) ([]domain.SectionHit, error) {
	m.lastTopK = topK
	m.lastFilter = modelFilter
	m.lastModel = embeddingModel
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var out []domain.SectionHit
	for _, h := range m.hits {
		if modelFilter != "" && h.Section.PrinterModel != modelFilter {
			continue
		}
		out = append(out, h)
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *mockSectionStore) ModelHashes(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (m *mockSectionStore) Count(context.Context, string) (int, error) {
	return len(m.hits), nil
}

func (m *mockSectionStore) EmbeddingModel(context.Context) (string, error) {
	return "", nil
}

func (m *mockSectionStore) Close() error {
	return nil
}

// mockKeywords implements KeywordExtractor with a fixed answer.
type mockKeywords struct {
	keywords []string
}

func (m mockKeywords) Keywords(string) []string {
	return m.keywords
}

func hit(id, model string, distance float64, keywords ...string) domain.SectionHit {
	return domain.SectionHit{
		Section: domain.Section{
			ID:           id,
			Title:        id,
			Content:      "conteudo " + id,
			Type:         domain.SectionGeneral,
			Keywords:     keywords,
			PrinterModel: model,
		},
		Distance: distance,
	}
}

// mockExtractor implements SectionExtractor with canned page texts.
type mockExtractor struct {
	pages map[string][]string
	fail  map[string]error
}

func (m *mockExtractor) ExtractFile(_ context.Context, path, modelID string) (extractor.Result, error) {
	if err := m.fail[path]; err != nil {
		return extractor.Result{}, err
	}
	pages, ok := m.pages[path]
	if !ok {
		return extractor.Result{}, fmt.Errorf("open %s: no such file", path)
	}
	return extractor.New().Extract(pages, modelID, "hash-"+path), nil
}

// mockSource implements driven.ManualSource over a fixed listing.
type mockSource struct {
	name     string
	files    []domain.SourceFile
	listErr  error
	fetchErr map[string]error
	fetched  []string
}

func (m *mockSource) Name() string {
	return m.name
}

func (m *mockSource) List(context.Context) ([]domain.SourceFile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.SourceFile(nil), m.files...), nil
}

func (m *mockSource) Fetch(_ context.Context, f domain.SourceFile) (string, error) {
	if err := m.fetchErr[f.Ref]; err != nil {
		return "", err
	}
	m.fetched = append(m.fetched, f.Ref)
	return f.Ref, nil
}

// manualPages returns page texts that extract into a few sections.
func manualPages(model string) []string {
	return []string{
		"Solução de problemas da " + model + "\n" +
			"Se a impressora não funciona, verifique o cabo de energia e reinicie o equipamento.\n" +
			"Erro de papel atolado: abra a tampa e remova o papel com cuidado.\n",
		"Carregamento de papel na bandeja traseira\n" +
			"Coloque o papel na bandeja com o lado de impressão voltado para cima e ajuste as guias.\n" +
			"Configurar Wi-Fi: pressione o botão wifi por três segundos até a luz piscar.\n",
	}
}
