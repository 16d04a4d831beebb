package assistant

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"
	"gorm.io/gorm"

	"github.com/aicser/aicser-studio/app/models"
	"github.com/aicser/aicser-studio/internal/pkg/search"
)

type fakeGenerator struct {
	responses []*genai.GenerateContentResponse
	calls     int
	seen      [][]*genai.Content
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	g.seen = append(g.seen, contents)
	if g.calls >= len(g.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := g.responses[g.calls]
	g.calls++
	return resp, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func toolCallResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
			}}},
		},
	}
}

type fakeSearcher struct {
	queries []string
	results []search.Result
	err     error
}

func (s *fakeSearcher) Search(ctx context.Context, query string, num int) ([]search.Result, error) {
	s.queries = append(s.queries, query)
	return s.results, s.err
}

type fakeCourseRepo struct {
	courses []models.Course
}

func (r *fakeCourseRepo) Create(course *models.Course) error { return nil }
func (r *fakeCourseRepo) GetByID(id uint) (*models.Course, error) {
	for i := range r.courses {
		if r.courses[i].ID == id {
			return &r.courses[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeCourseRepo) GetByUUID(uuid string) (*models.Course, error) {
	for i := range r.courses {
		if r.courses[i].UUID == uuid {
			return &r.courses[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeCourseRepo) List(offset, limit int) ([]models.Course, error) { return r.courses, nil }
func (r *fakeCourseRepo) Update(course *models.Course) error             { return nil }
func (r *fakeCourseRepo) Delete(id uint) error                           { return nil }
func (r *fakeCourseRepo) Count() (int64, error)                          { return int64(len(r.courses)), nil }
func (r *fakeCourseRepo) Search(query string) ([]models.Course, error)   { return r.courses, nil }

type fakeProgressRepo struct {
	progress map[uint]*models.CourseProgress
}

func (r *fakeProgressRepo) GetByUserAndCourse(userID, courseID uint) (*models.CourseProgress, error) {
	if p, ok := r.progress[courseID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeProgressRepo) GetByUser(userID uint) ([]models.CourseProgress, error) { return nil, nil }
func (r *fakeProgressRepo) Upsert(progress *models.CourseProgress) error           { return nil }
func (r *fakeProgressRepo) CountCompletedByUser(userID uint) (int64, error)        { return 0, nil }

func TestChatPlainAnswer(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		textResponse("Backpropagation computes gradients layer by layer."),
	}}
	svc := NewService(gen, "test-model", &fakeSearcher{}, &fakeCourseRepo{}, &fakeProgressRepo{})

	answer, err := svc.Chat(context.Background(), ChatInput{
		UserID:   7,
		Question: "What is backpropagation?",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if answer != "Backpropagation computes gradients layer by layer." {
		t.Fatalf("unexpected answer: %q", answer)
	}
	if gen.calls != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.calls)
	}
}

func TestChatWebSearchTool(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		toolCallResponse("searchDocuments", map[string]any{"query": "attention mechanism", "source": "google-search"}),
		textResponse("According to the paper, attention weighs token relevance."),
	}}
	searcher := &fakeSearcher{results: []search.Result{
		{Title: "Attention Is All You Need", Snippet: "The transformer paper.", URL: "https://example.com", Source: "google-search"},
	}}
	svc := NewService(gen, "test-model", searcher, &fakeCourseRepo{}, &fakeProgressRepo{})

	answer, err := svc.Chat(context.Background(), ChatInput{UserID: 7, Question: "Explain attention"})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if answer == "" {
		t.Fatalf("expected a final answer after tool round")
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "attention mechanism" {
		t.Fatalf("searcher queries = %v", searcher.queries)
	}
	// Second round must carry the model turn plus the tool response.
	if len(gen.seen) != 2 || len(gen.seen[1]) != len(gen.seen[0])+2 {
		t.Fatalf("expected tool round to grow the conversation: %d -> %d", len(gen.seen[0]), len(gen.seen[1]))
	}
}

func TestChatCourseInfoTool(t *testing.T) {
	course := models.Course{ID: 3, UUID: "uuid-3", Title: "Deep Learning", Difficulty: "intermediate"}
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		toolCallResponse("getCourseInfo", map[string]any{"info_type": "progress"}),
		textResponse("You are halfway through."),
	}}
	progress := &fakeProgressRepo{progress: map[uint]*models.CourseProgress{
		3: {UserID: 7, CourseID: 3, ProgressPercentage: 50},
	}}
	svc := NewService(gen, "test-model", &fakeSearcher{}, &fakeCourseRepo{courses: []models.Course{course}}, progress)

	answer, err := svc.Chat(context.Background(), ChatInput{
		UserID:     7,
		CourseUUID: "uuid-3",
		Question:   "How far am I?",
	})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if answer != "You are halfway through." {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestChatToolRoundLimit(t *testing.T) {
	loop := toolCallResponse("searchDocuments", map[string]any{"query": "x", "source": "google-search"})
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{loop, loop, loop, loop, loop, loop}}
	svc := NewService(gen, "test-model", &fakeSearcher{}, &fakeCourseRepo{}, &fakeProgressRepo{})

	_, err := svc.Chat(context.Background(), ChatInput{UserID: 7, Question: "loop"})
	if err == nil {
		t.Fatalf("expected error when tool rounds never settle")
	}
	if gen.calls != maxToolRounds+1 {
		t.Fatalf("generator calls = %d, want %d", gen.calls, maxToolRounds+1)
	}
}

func TestChatEmptyQuestion(t *testing.T) {
	svc := NewService(&fakeGenerator{}, "test-model", &fakeSearcher{}, &fakeCourseRepo{}, &fakeProgressRepo{})
	if _, err := svc.Chat(context.Background(), ChatInput{UserID: 7, Question: "  "}); err == nil {
		t.Fatalf("expected error for empty question")
	}
}
