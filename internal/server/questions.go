package server

import (
	"context"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
)

// QuestionSource supplies a shuffled batch of questions for one game.
type QuestionSource interface {
	Fetch(ctx context.Context, count int, category string) ([]Question, error)
}

// CategoryLister is implemented by question sources that can enumerate
// their categories.
type CategoryLister interface {
	Categories(ctx context.Context) ([]string, error)
}

type QuestionSourceFunc func(ctx context.Context, count int, category string) ([]Question, error)

func (f QuestionSourceFunc) Fetch(ctx context.Context, count int, category string) ([]Question, error) {
	return f(ctx, count, category)
}

// MemoryQuestions serves questions from a fixed in-process list.
type MemoryQuestions struct {
	mu        sync.Mutex
	questions []Question
	rng       *rand.Rand
}

func NewMemoryQuestions(questions []Question, rng *rand.Rand) *MemoryQuestions {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &MemoryQuestions{
		questions: append([]Question(nil), questions...),
		rng:       rng,
	}
}

func (m *MemoryQuestions) Fetch(ctx context.Context, count int, category string) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	m.mu.Lock()
	defer m.mu.Unlock()

	pool := make([]Question, 0, len(m.questions))
	for _, q := range m.questions {
		if category != "" && !strings.EqualFold(q.Category, category) {
			continue
		}
		pool = append(pool, q)
	}
	m.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if count < len(pool) {
		pool = pool[:count]
	}
	return pool, nil
}

func (m *MemoryQuestions) Categories(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	categories := make([]string, 0, len(m.questions))
	for _, q := range m.questions {
		if category := strings.TrimSpace(q.Category); category != "" {
			categories = append(categories, category)
		}
	}
	slices.Sort(categories)
	return slices.Compact(categories), nil
}

// DefaultQuestions is the built-in bank used when no database is configured.
func DefaultQuestions() []Question {
	return []Question{
		{Text: "What is the chemical symbol for gold?", Options: []string{"Ag", "Au", "Gd", "Go"}, CorrectIndex: 1, Category: "science"},
		{Text: "How many planets are in the solar system?", Options: []string{"7", "8", "9", "10"}, CorrectIndex: 1, Category: "science"},
		{Text: "What gas do plants absorb from the air?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Helium"}, CorrectIndex: 2, Category: "science"},
		{Text: "What is the boiling point of water at sea level in Celsius?", Options: []string{"90", "100", "110", "120"}, CorrectIndex: 1, Category: "science"},
		{Text: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, CorrectIndex: 2, Category: "geography"},
		{Text: "Which river flows through Cairo?", Options: []string{"Nile", "Tigris", "Danube", "Congo"}, CorrectIndex: 0, Category: "geography"},
		{Text: "Which is the largest ocean?", Options: []string{"Atlantic", "Indian", "Arctic", "Pacific"}, CorrectIndex: 3, Category: "geography"},
		{Text: "Mount Kilimanjaro is in which country?", Options: []string{"Kenya", "Tanzania", "Uganda", "Ethiopia"}, CorrectIndex: 1, Category: "geography"},
		{Text: "In which year did the Berlin Wall fall?", Options: []string{"1987", "1989", "1991", "1993"}, CorrectIndex: 1, Category: "history"},
		{Text: "Who was the first person to walk on the Moon?", Options: []string{"Buzz Aldrin", "Yuri Gagarin", "Neil Armstrong", "John Glenn"}, CorrectIndex: 2, Category: "history"},
		{Text: "Which empire built Machu Picchu?", Options: []string{"Aztec", "Maya", "Inca", "Olmec"}, CorrectIndex: 2, Category: "history"},
		{Text: "How many sides does a hexagon have?", Options: []string{"5", "6", "7", "8"}, CorrectIndex: 1, Category: "math"},
		{Text: "What is 12 times 12?", Options: []string{"124", "144", "132", "156"}, CorrectIndex: 1, Category: "math"},
		{Text: "What is the square root of 81?", Options: []string{"7", "8", "9", "11"}, CorrectIndex: 2, Category: "math"},
	}
}

func toQuestionView(q Question) questionView {
	return questionView{
		Text:     q.Text,
		Options:  append([]string(nil), q.Options...),
		Category: q.Category,
	}
}
