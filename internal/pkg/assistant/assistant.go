package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"

	"github.com/aicser/aicser-studio/app/repository"
	"github.com/aicser/aicser-studio/internal/pkg/env"
	"github.com/aicser/aicser-studio/internal/pkg/search"
)

const (
	defaultModel = "gemini-2.0-flash"

	// Tool rounds are bounded so a misbehaving model cannot loop forever.
	maxToolRounds = 4

	systemPrompt = `You are an AI Assistant for Aicser AI Studio, a professional learning platform.
Your role is to help students by:
- Answering questions about the course content
- Searching for relevant documents and resources
- Providing explanations and clarifications
- Helping students understand difficult concepts

Be friendly, professional, and concise. Always cite sources when providing information from documents.`
)

// Generator is the narrow slice of the Gemini API the service calls.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Message is one turn of assistant chat history.
type Message struct {
	Role    string `json:"role" validate:"oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatInput carries one assistant request.
type ChatInput struct {
	UserID     uint
	CourseUUID string
	History    []Message
	Question   string
}

// Service answers student questions with the Gemini model, giving it a web
// search tool and a course info tool it can call.
type Service struct {
	gen      Generator
	model    string
	searcher search.Searcher
	courses  repository.CourseRepository
	progress repository.ProgressRepository
}

// NewService creates an assistant from injected collaborators.
func NewService(gen Generator, model string, searcher search.Searcher, courses repository.CourseRepository, progress repository.ProgressRepository) *Service {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Service{
		gen:      gen,
		model:    model,
		searcher: searcher,
		courses:  courses,
		progress: progress,
	}
}

// NewServiceFromEnv creates an assistant backed by the Gemini API using
// GEMINI_API_KEY and the global repository factory.
func NewServiceFromEnv(ctx context.Context) (*Service, error) {
	apiKey := strings.TrimSpace(env.GetEnv("GEMINI_API_KEY", ""))
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	repos := repository.GetGlobalRepositories()
	return NewService(
		client.Models,
		env.GetEnv("GEMINI_MODEL", defaultModel),
		search.NewGoogleClientFromEnv(),
		repos.Course,
		repos.Progress,
	), nil
}

func toolDeclarations() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "searchDocuments",
					Description: "Search for relevant documents, resources, or information related to the course content",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"query": {
								Type:        genai.TypeString,
								Description: "The search query",
							},
							"source": {
								Type:        genai.TypeString,
								Description: "Where to search",
								Enum:        []string{"course", "google-search"},
							},
						},
						Required: []string{"query", "source"},
					},
				},
				{
					Name:        "getCourseInfo",
					Description: "Get information about the current course, lessons, or resources",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"info_type": {
								Type: genai.TypeString,
								Enum: []string{"progress", "resources", "lessons", "difficulty"},
							},
						},
						Required: []string{"info_type"},
					},
				},
			},
		},
	}
}

// Chat runs one assistant exchange, executing tool calls until the model
// produces a text answer or the round limit is hit.
func (s *Service) Chat(ctx context.Context, in ChatInput) (string, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return "", errors.New("question is required")
	}

	contents := make([]*genai.Content, 0, len(in.History)+1)
	for _, m := range in.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(question, genai.RoleUser))

	instruction := systemPrompt
	if in.CourseUUID != "" {
		instruction += "\nCurrent course ID: " + in.CourseUUID
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.7),
		MaxOutputTokens:   2000,
		Tools:             toolDeclarations(),
	}

	for round := 0; round <= maxToolRounds; round++ {
		resp, err := s.gen.GenerateContent(ctx, s.model, contents, config)
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", errors.New("assistant returned no candidates")
		}

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return resp.Text(), nil
		}

		contents = append(contents, resp.Candidates[0].Content)
		for _, call := range calls {
			result := s.executeTool(ctx, in, call)
			contents = append(contents, genai.NewContentFromParts(
				[]*genai.Part{genai.NewPartFromFunctionResponse(call.Name, result)},
				genai.RoleUser,
			))
		}
	}

	return "", errors.New("assistant exceeded tool call limit")
}

func (s *Service) executeTool(ctx context.Context, in ChatInput, call *genai.FunctionCall) map[string]any {
	switch call.Name {
	case "searchDocuments":
		return s.searchDocuments(ctx, call.Args)
	case "getCourseInfo":
		return s.getCourseInfo(in, stringArg(call.Args, "info_type"))
	default:
		return map[string]any{"error": fmt.Sprintf("unknown tool: %s", call.Name)}
	}
}

func (s *Service) searchDocuments(ctx context.Context, args map[string]any) map[string]any {
	query := strings.TrimSpace(stringArg(args, "query"))
	source := stringArg(args, "source")
	if query == "" {
		return map[string]any{"results": []any{}, "count": 0}
	}
	fiberlog.Infof("assistant: searching %s for: %s", source, query)

	switch source {
	case "google-search":
		results, err := s.searcher.Search(ctx, query, 5)
		if err != nil {
			return map[string]any{
				"results": []map[string]any{{
					"title":   "Search Error",
					"snippet": err.Error(),
					"source":  "google-search",
					"url":     "#",
				}},
				"count": 0,
			}
		}
		out := make([]map[string]any, 0, len(results))
		for _, r := range results {
			out = append(out, map[string]any{
				"title":   r.Title,
				"snippet": r.Snippet,
				"source":  r.Source,
				"url":     r.URL,
			})
		}
		return map[string]any{"results": out, "count": len(out)}
	default:
		courses, err := s.courses.Search(query)
		if err != nil {
			return map[string]any{"results": []any{}, "count": 0}
		}
		out := make([]map[string]any, 0, len(courses))
		for _, c := range courses {
			out = append(out, map[string]any{
				"title":   c.Title,
				"snippet": c.Description,
				"source":  "course",
				"url":     "/courses/" + c.UUID,
			})
		}
		return map[string]any{"results": out, "count": len(out)}
	}
}

func (s *Service) getCourseInfo(in ChatInput, infoType string) map[string]any {
	if in.CourseUUID == "" {
		return map[string]any{"info": "No course is currently selected."}
	}
	course, err := s.courses.GetByUUID(in.CourseUUID)
	if err != nil {
		return map[string]any{"info": "Course information is not available."}
	}

	switch infoType {
	case "progress":
		if s.progress != nil && in.UserID != 0 {
			if p, err := s.progress.GetByUserAndCourse(in.UserID, course.ID); err == nil {
				return map[string]any{"info": fmt.Sprintf("You are currently at %d%% completion of this course.", p.ProgressPercentage)}
			}
		}
		return map[string]any{"info": "You have not started this course yet."}
	case "resources":
		resources := course.Resources()
		if len(resources) == 0 {
			return map[string]any{"info": "This course has no downloadable resources."}
		}
		names := make([]string, 0, len(resources))
		for _, r := range resources {
			names = append(names, r.Title)
		}
		return map[string]any{"info": "This course includes: " + strings.Join(names, ", ")}
	case "difficulty":
		return map[string]any{"info": fmt.Sprintf("This is a %s level course.", course.Difficulty)}
	default:
		return map[string]any{"info": course.Description}
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, _ := args[key].(string)
	return v
}
