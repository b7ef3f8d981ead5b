// Package assistant builds tutoring prompts and sends them to the completion gateway.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"metutor/internal/models"
	"metutor/internal/service/calculator"
)

// ErrInvalidInput reports a missing or out of range request field.
var ErrInvalidInput = errors.New("invalid input")

// Completer is the completion call the tutor depends on.
type Completer interface {
	Complete(ctx context.Context, prompt models.Prompt, opts models.CompletionOptions) (*models.Completion, error)
}

const (
	DefaultLevel          = "beginner"
	DefaultDifficulty     = "beginner"
	DefaultSolveSubject   = "General Engineering"
	DefaultLectureSubject = "Mechanical Engineering"
	DefaultLectureTitle   = "Engineering Lecture"
	DefaultProblemCount   = 3
	MaxProblemCount       = 20

	defaultContentType = "provided"
)

// Tutor runs one completion per operation; nothing is shared between calls.
type Tutor struct {
	llm         Completer
	temperature float32
}

// NewTutor uses temperature for free-form chat, the other operations use fixed values.
func NewTutor(llm Completer, temperature float64) *Tutor {
	return &Tutor{llm: llm, temperature: float32(temperature)}
}

type ChatRequest struct {
	Message string
	Context string
	Subject string
}

func (t *Tutor) Chat(ctx context.Context, req ChatRequest) (*models.Completion, error) {
	if err := requireFields("message", req.Message); err != nil {
		return nil, err
	}
	return t.run(ctx, models.PromptRequest{
		SystemTemplate: tutorSystemPrompt,
		UserMessage:    "{message}",
		Subject:        req.Subject,
		Context:        req.Context,
		SubjectLabel:   "CURRENT SUBJECT FOCUS:",
		ContextLabel:   "CONTEXT:",
		Vars:           map[string]string{"message": req.Message},
	}, models.CompletionOptions{Temperature: t.temperature, MaxTokens: 2000, UseTools: true})
}

type SubjectHelpRequest struct {
	Subject string
	Topic   string
	Level   string
}

type SubjectHelp struct {
	Response string
	Subject  string
	Topic    string
	Level    string
}

func (t *Tutor) SubjectHelp(ctx context.Context, req SubjectHelpRequest) (*SubjectHelp, error) {
	if err := requireFields("subject", req.Subject, "topic", req.Topic); err != nil {
		return nil, err
	}
	level := orDefault(req.Level, DefaultLevel)
	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: subjectHelpTemplate,
		UserMessage:    subjectHelpUser,
		Subject:        req.Subject,
		Topic:          req.Topic,
		Vars:           map[string]string{"level": level},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 2500, UseTools: true})
	if err != nil {
		return nil, err
	}
	return &SubjectHelp{Response: out.Text, Subject: req.Subject, Topic: req.Topic, Level: level}, nil
}

type ExplainContentRequest struct {
	Content     string
	ContentType string
	Context     string
}

func (t *Tutor) ExplainContent(ctx context.Context, req ExplainContentRequest) (string, error) {
	if err := requireFields("content", req.Content); err != nil {
		return "", err
	}
	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: explainContentTemplate,
		UserMessage:    "{content}",
		Context:        req.Context,
		Vars: map[string]string{
			"content":      req.Content,
			"content_type": orDefault(req.ContentType, defaultContentType),
			"context_line": optionalLine("CONTEXT:", req.Context),
		},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 3000})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

type SolveRequest struct {
	Problem string
	Subject string
	Context string
}

type Solution struct {
	Solution string
	Problem  string
	Subject  string
}

func (t *Tutor) SolveProblem(ctx context.Context, req SolveRequest) (*Solution, error) {
	if err := requireFields("problem", req.Problem); err != nil {
		return nil, err
	}
	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: problemSolverPrompt,
		UserMessage:    solveUser,
		Subject:        req.Subject,
		Context:        req.Context,
		SubjectLabel:   "SUBJECT AREA:",
		ContextLabel:   "ADDITIONAL CONTEXT:",
		Vars:           map[string]string{"problem": req.Problem},
	}, models.CompletionOptions{Temperature: 0.2, MaxTokens: 3000})
	if err != nil {
		return nil, err
	}
	return &Solution{
		Solution: out.Text,
		Problem:  req.Problem,
		Subject:  orDefault(req.Subject, DefaultSolveSubject),
	}, nil
}

type CheckWorkRequest struct {
	Problem         string
	StudentSolution string
	CorrectAnswer   string
}

func (t *Tutor) CheckWork(ctx context.Context, req CheckWorkRequest) (string, error) {
	if err := requireFields("problem", req.Problem, "studentSolution", req.StudentSolution); err != nil {
		return "", err
	}
	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: checkWorkTemplate,
		UserMessage:    checkWorkUser,
		Vars: map[string]string{
			"problem":             req.Problem,
			"student_solution":    req.StudentSolution,
			"correct_answer_line": optionalLine("CORRECT ANSWER:", req.CorrectAnswer),
		},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 2000})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

type GenerateRequest struct {
	Subject    string
	Topic      string
	Difficulty string
	Count      int
}

type ProblemSet struct {
	Problems   string
	Subject    string
	Topic      string
	Difficulty string
	Count      int
}

func (t *Tutor) GenerateProblems(ctx context.Context, req GenerateRequest) (*ProblemSet, error) {
	if err := requireFields("subject", req.Subject, "topic", req.Topic); err != nil {
		return nil, err
	}
	count := req.Count
	if count == 0 {
		count = DefaultProblemCount
	}
	if count < 1 || count > MaxProblemCount {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, MaxProblemCount)
	}
	difficulty := orDefault(req.Difficulty, DefaultDifficulty)

	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: problemSolverPrompt,
		UserMessage:    generateProblemsTemplate,
		Subject:        req.Subject,
		Topic:          req.Topic,
		Vars: map[string]string{
			"count":      strconv.Itoa(count),
			"difficulty": difficulty,
		},
	}, models.CompletionOptions{Temperature: 0.7, MaxTokens: 2000})
	if err != nil {
		return nil, err
	}
	return &ProblemSet{
		Problems:   out.Text,
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: difficulty,
		Count:      count,
	}, nil
}

type CalculateRequest struct {
	Expression string
	Context    string
}

type Calculation struct {
	Expression  string
	Result      calculator.Result
	Explanation string
}

// Calculate evaluates locally first; a bad expression never reaches the model.
func (t *Tutor) Calculate(ctx context.Context, req CalculateRequest) (*Calculation, error) {
	if err := requireFields("expression", req.Expression); err != nil {
		return nil, err
	}
	result, err := calculator.Evaluate(req.Expression)
	if err != nil {
		return nil, err
	}
	out, err := t.run(ctx, models.PromptRequest{
		SystemTemplate: mathTutorPrompt,
		UserMessage:    calculationTemplate,
		Vars: map[string]string{
			"expression":   req.Expression,
			"result":       result.String(),
			"context_line": optionalLine("Context:", req.Context),
		},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 1000})
	if err != nil {
		return nil, err
	}
	return &Calculation{Expression: req.Expression, Result: result, Explanation: out.Text}, nil
}

type ExplainUploadRequest struct {
	Content     string
	ContentType string
	Context     string
	Subject     string
}

func (t *Tutor) ExplainUpload(ctx context.Context, req ExplainUploadRequest) (string, error) {
	if err := requireFields("content", req.Content); err != nil {
		return "", err
	}
	out, err := t.run(ctx, models.PromptRequest{
		UserMessage: uploadExplainTemplate,
		Vars: map[string]string{
			"content":      req.Content,
			"content_type": orDefault(req.ContentType, defaultContentType),
			"subject_line": optionalLine("SUBJECT CONTEXT:", req.Subject),
			"context_line": optionalLine("ADDITIONAL CONTEXT:", req.Context),
		},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 3000})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

type LectureRequest struct {
	Transcript   string
	Subject      string
	LectureTitle string
}

type LectureAnalysis struct {
	Analysis     string
	Subject      string
	LectureTitle string
}

func (t *Tutor) AnalyzeLecture(ctx context.Context, req LectureRequest) (*LectureAnalysis, error) {
	if err := requireFields("transcript", req.Transcript); err != nil {
		return nil, err
	}
	subject := orDefault(req.Subject, DefaultLectureSubject)
	title := orDefault(req.LectureTitle, DefaultLectureTitle)
	out, err := t.run(ctx, models.PromptRequest{
		UserMessage: lectureAnalysisTemplate,
		Subject:     subject,
		Vars: map[string]string{
			"lecture_title": title,
			"transcript":    req.Transcript,
		},
	}, models.CompletionOptions{Temperature: 0.3, MaxTokens: 3500})
	if err != nil {
		return nil, err
	}
	return &LectureAnalysis{Analysis: out.Text, Subject: subject, LectureTitle: title}, nil
}

func (t *Tutor) run(ctx context.Context, req models.PromptRequest, opts models.CompletionOptions) (*models.Completion, error) {
	p, err := Compose(ctx, req)
	if err != nil {
		return nil, err
	}
	return t.llm.Complete(ctx, p, opts)
}

// requireFields takes name/value pairs and fails on the first blank value.
func requireFields(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if !present(pairs[i+1]) {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, pairs[i])
		}
	}
	return nil
}

func orDefault(value, fallback string) string {
	if present(value) {
		return value
	}
	return fallback
}
