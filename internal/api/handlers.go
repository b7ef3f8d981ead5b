package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"metutor/internal/service/assistant"
	"metutor/internal/service/upload"
	"metutor/internal/storage"
)

// multipartOverhead is the room left for boundaries and headers above the file size limit.
const multipartOverhead = 1 << 20

type Options struct {
	ClientDir string
	Provider  string
	Model     string
}

// Handler wires HTTP routes to the tutor and upload services.
type Handler struct {
	tutor   *assistant.Tutor
	uploads *upload.Service
	opts    Options
}

func NewHandler(tutor *assistant.Tutor, uploads *upload.Service, opts Options) *Handler {
	return &Handler{tutor: tutor, uploads: uploads, opts: opts}
}

// NewRouter builds the gin engine with logging and recovery.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(), gin.Recovery())
	router.MaxMultipartMemory = 8 << 20
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)

	api := router.Group("/api")
	tutor := api.Group("/tutor")
	tutor.POST("/chat", h.chat)
	tutor.POST("/subject-help", h.subjectHelp)
	tutor.POST("/explain-content", h.explainContent)

	solve := api.Group("/solve")
	solve.POST("/solve-problem", h.solveProblem)
	solve.POST("/check-work", h.checkWork)
	solve.POST("/generate-problems", h.generateProblems)
	solve.POST("/calculate", h.calculate)

	uploads := api.Group("/upload")
	uploads.POST("/file", h.uploadFile)
	uploads.GET("/file/:fileId", h.getUpload)
	uploads.POST("/explain", h.explainUpload)
	uploads.POST("/analyze-lecture", h.analyzeLecture)

	router.Static("/uploads", h.uploads.Dir())
	router.NoRoute(h.serveClient)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.opts.Provider,
		"model":    h.opts.Model,
	})
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	Context string `json:"context"`
	Subject string `json:"subject"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.Chat(c.Request.Context(), assistant.ChatRequest{
		Message: req.Message,
		Context: req.Context,
		Subject: req.Subject,
	})
	if err != nil {
		respondError(c, err, "Failed to get response from AI tutor")
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": out.Text, "usage": out.Usage})
}

type subjectHelpRequest struct {
	Subject string `json:"subject" binding:"required"`
	Topic   string `json:"topic" binding:"required"`
	Level   string `json:"level"`
}

func (h *Handler) subjectHelp(c *gin.Context) {
	var req subjectHelpRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.SubjectHelp(c.Request.Context(), assistant.SubjectHelpRequest{
		Subject: req.Subject,
		Topic:   req.Topic,
		Level:   req.Level,
	})
	if err != nil {
		respondError(c, err, "Failed to get subject-specific help")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"response": out.Response,
		"subject":  out.Subject,
		"topic":    out.Topic,
		"level":    out.Level,
	})
}

type explainContentRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"contentType"`
	Context     string `json:"context"`
}

func (h *Handler) explainContent(c *gin.Context) {
	var req explainContentRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.ExplainContent(c.Request.Context(), assistant.ExplainContentRequest{
		Content:     req.Content,
		ContentType: req.ContentType,
		Context:     req.Context,
	})
	if err != nil {
		respondError(c, err, "Failed to explain content")
		return
	}
	c.JSON(http.StatusOK, gin.H{"explanation": out, "contentType": req.ContentType})
}

type solveRequest struct {
	Problem string `json:"problem" binding:"required"`
	Subject string `json:"subject"`
	Context string `json:"context"`
}

func (h *Handler) solveProblem(c *gin.Context) {
	var req solveRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.SolveProblem(c.Request.Context(), assistant.SolveRequest{
		Problem: req.Problem,
		Subject: req.Subject,
		Context: req.Context,
	})
	if err != nil {
		respondError(c, err, "Failed to solve problem")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"solution": out.Solution,
		"problem":  out.Problem,
		"subject":  out.Subject,
	})
}

type checkWorkRequest struct {
	Problem         string `json:"problem" binding:"required"`
	StudentSolution string `json:"studentSolution" binding:"required"`
	CorrectAnswer   string `json:"correctAnswer"`
}

func (h *Handler) checkWork(c *gin.Context) {
	var req checkWorkRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.CheckWork(c.Request.Context(), assistant.CheckWorkRequest{
		Problem:         req.Problem,
		StudentSolution: req.StudentSolution,
		CorrectAnswer:   req.CorrectAnswer,
	})
	if err != nil {
		respondError(c, err, "Failed to check work")
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedback": out, "problem": req.Problem})
}

type generateRequest struct {
	Subject    string `json:"subject" binding:"required"`
	Topic      string `json:"topic" binding:"required"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count" binding:"omitempty,min=1,max=20"`
}

func (h *Handler) generateProblems(c *gin.Context) {
	var req generateRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.GenerateProblems(c.Request.Context(), assistant.GenerateRequest{
		Subject:    req.Subject,
		Topic:      req.Topic,
		Difficulty: req.Difficulty,
		Count:      req.Count,
	})
	if err != nil {
		respondError(c, err, "Failed to generate practice problems")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"problems":   out.Problems,
		"subject":    out.Subject,
		"topic":      out.Topic,
		"difficulty": out.Difficulty,
	})
}

type calculateRequest struct {
	Expression string `json:"expression" binding:"required"`
	Context    string `json:"context"`
}

func (h *Handler) calculate(c *gin.Context) {
	var req calculateRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.Calculate(c.Request.Context(), assistant.CalculateRequest{
		Expression: req.Expression,
		Context:    req.Context,
	})
	if err != nil {
		respondError(c, err, "Failed to perform calculation")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expression":  out.Expression,
		"result":      out.Result.JSON(),
		"explanation": out.Explanation,
	})
}

func (h *Handler) uploadFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploads.MaxBytes()+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, formFileError(err), "Failed to process file")
		return
	}
	res, err := h.uploads.Process(c.Request.Context(), fh)
	if err != nil {
		respondError(c, err, "Failed to process file")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":         res.File.OriginalName,
		"contentType":      res.Extraction.ContentType.Label(),
		"extractedContent": res.Extraction.Text,
		"fileId":           res.File.ID,
		"size":             res.File.Size,
	})
}

func (h *Handler) getUpload(c *gin.Context) {
	file, err := h.uploads.Get(c.Request.Context(), c.Param("fileId"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	if err != nil {
		respondError(c, err, "Failed to load file")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"fileId":    file.ID,
		"filename":  file.OriginalName,
		"mimeType":  file.MimeType,
		"size":      file.Size,
		"createdAt": file.CreatedAt,
		"expiresAt": file.ExpiresAt,
		"url":       "/uploads/" + file.ID,
	})
}

type explainUploadRequest struct {
	Content     string `json:"content" binding:"required"`
	ContentType string `json:"contentType"`
	Context     string `json:"context"`
	Subject     string `json:"subject"`
}

func (h *Handler) explainUpload(c *gin.Context) {
	var req explainUploadRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.ExplainUpload(c.Request.Context(), assistant.ExplainUploadRequest{
		Content:     req.Content,
		ContentType: req.ContentType,
		Context:     req.Context,
		Subject:     req.Subject,
	})
	if err != nil {
		respondError(c, err, "Failed to explain content")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"explanation": out,
		"contentType": req.ContentType,
		"processed":   true,
	})
}

type lectureRequest struct {
	Transcript   string `json:"transcript" binding:"required"`
	Subject      string `json:"subject"`
	LectureTitle string `json:"lectureTitle"`
}

func (h *Handler) analyzeLecture(c *gin.Context) {
	var req lectureRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.tutor.AnalyzeLecture(c.Request.Context(), assistant.LectureRequest{
		Transcript:   req.Transcript,
		Subject:      req.Subject,
		LectureTitle: req.LectureTitle,
	})
	if err != nil {
		respondError(c, err, "Failed to analyze lecture content")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis":     out.Analysis,
		"subject":      out.Subject,
		"lectureTitle": out.LectureTitle,
	})
}

// serveClient serves the browser bundle; unknown paths get index.html.
func (h *Handler) serveClient(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.Status(http.StatusNotFound)
		return
	}
	if h.opts.ClientDir == "" {
		c.Status(http.StatusNotFound)
		return
	}
	rel := filepath.FromSlash(filepath.Clean("/" + c.Request.URL.Path))
	target := filepath.Join(h.opts.ClientDir, rel)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		c.File(target)
		return
	}
	index := filepath.Join(h.opts.ClientDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(index)
}
