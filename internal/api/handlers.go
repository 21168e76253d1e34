package api

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"pdf-rag/internal/apperr"
	"pdf-rag/internal/models"
	"pdf-rag/internal/pdfext"
	"pdf-rag/internal/repository"
	"pdf-rag/internal/services"
	"pdf-rag/internal/storage"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests.
type Handler struct {
	userRepo    *repository.UserRepositoryImpl
	docRepo     *repository.DocumentRepositoryImpl
	linkRepo    *repository.LinkRepositoryImpl
	files       *storage.FileStore
	embService  EmbeddingService
	ragService  *services.RAGService
	jobService  *services.JobMatchService
	searcher    JobSearcher
	maxFileSize int64
}

func NewHandler(
	userRepo *repository.UserRepositoryImpl,
	docRepo *repository.DocumentRepositoryImpl,
	linkRepo *repository.LinkRepositoryImpl,
	files *storage.FileStore,
	embService EmbeddingService,
	ragService *services.RAGService,
	jobService *services.JobMatchService,
	searcher JobSearcher,
	maxFileSize int64,
) *Handler {
	return &Handler{
		userRepo:    userRepo,
		docRepo:     docRepo,
		linkRepo:    linkRepo,
		files:       files,
		embService:  embService,
		ragService:  ragService,
		jobService:  jobService,
		searcher:    searcher,
		maxFileSize: maxFileSize,
	}
}

// writeJSON sends a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the error taxonomy onto HTTP statuses: validation is the
// caller's fault, not-found is 404, a failed remote provider is a bad
// gateway, and everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsProvider(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// Auth handlers

// Login is a lookup-by-email stub; there are no passwords or sessions.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.Email == "" {
		writeError(w, apperr.Validation("email is required"))
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// User handlers

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var create models.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if create.Email == "" || create.Name == "" {
		writeError(w, apperr.Validation("email and name are required"))
		return
	}

	user, err := h.userRepo.Create(r.Context(), &create)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.docRepo.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Document handlers

// UploadDocument accepts a multipart PDF, stores the file, extracts its text
// synchronously, and queues the embedding. The response returns before the
// embedding exists.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		writeError(w, apperr.Validation("invalid upload: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.Validation("missing file field: %v", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !isPDF(header.Filename, contentType) {
		writeError(w, apperr.Validation("only PDF files are accepted"))
		return
	}

	meta, err := h.files.SaveFile(userID, header.Filename, contentType, file)
	if err != nil {
		writeError(w, err)
		return
	}

	absPath, err := h.files.AbsolutePath(meta.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	content := pdfext.ExtractText(absPath)

	doc := &models.Document{
		UserID:           userID,
		FilePath:         meta.Path,
		OriginalFilename: meta.OriginalFilename,
		FileSize:         meta.Size,
		MimeType:         contentType,
		Content:          &content,
		Status:           models.StatusProcessed,
	}
	if title := r.FormValue("title"); title != "" {
		doc.Title = &title
	}

	if err := h.docRepo.Create(r.Context(), doc); err != nil {
		h.files.DeleteFile(meta.Path)
		writeError(w, err)
		return
	}

	// Best effort: a full queue or a shutdown leaves the document stored but
	// unembedded, which a later re-upload or content update can repair.
	if err := h.embService.Submit(services.EmbeddingJob{
		DocumentID: doc.ID,
		UserID:     userID,
		Content:    content,
	}); err != nil {
		log.Printf("upload: embedding submission for document %s failed: %v", doc.ID, err)
	}

	writeJSON(w, http.StatusCreated, doc)
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	return contentType == "application/pdf"
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	documents, err := h.docRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
		"count":     len(documents),
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docRepo.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var update models.DocumentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	updated, err := h.docRepo.Update(r.Context(), id, &update)
	if err != nil {
		writeError(w, err)
		return
	}

	// Changed text invalidates the stored embedding; queue a recompute.
	if update.Content != nil {
		if err := h.embService.Submit(services.EmbeddingJob{
			DocumentID: updated.ID,
			UserID:     updated.UserID,
			Content:    *update.Content,
		}); err != nil {
			log.Printf("update: embedding submission for document %s failed: %v", updated.ID, err)
		}
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteDocument removes the row and then the backing file. File removal is
// best-effort; an orphaned file is preferable to a row pointing at nothing.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	doc, err := h.docRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.docRepo.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	if !h.files.DeleteFile(doc.FilePath) {
		log.Printf("delete: file for document %s was already gone", id)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	h.serveDocumentFile(w, r, "attachment")
}

func (h *Handler) ViewDocument(w http.ResponseWriter, r *http.Request) {
	h.serveDocumentFile(w, r, "inline")
}

func (h *Handler) serveDocumentFile(w http.ResponseWriter, r *http.Request, disposition string) {
	doc, err := h.docRepo.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	absPath, err := h.files.AbsolutePath(doc.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition",
		disposition+`; filename="`+doc.OriginalFilename+`"`)
	http.ServeFile(w, r, absPath)
}

// RAG handlers

func (h *Handler) RAGQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query      string `json:"query"`
		DocumentID string `json:"document_id,omitempty"`
		UserID     string `json:"user_id,omitempty"`
		TopK       int    `json:"top_k,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, apperr.Validation("query is required"))
		return
	}

	answer, err := h.ragService.Answer(r.Context(), req.Query, models.SearchScope{
		DocumentID: req.DocumentID,
		UserID:     req.UserID,
	}, req.TopK)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":       req.Query,
		"answer":      answer.Answer,
		"sources":     answer.Sources,
		"tokens_used": answer.TokensUsed,
	})
}

// Job handlers

func (h *Handler) MatchJobs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID    string `json:"document_id"`
		Location      string `json:"location,omitempty"`
		ResultsWanted int    `json:"results_wanted,omitempty"`
		IsRemote      *bool  `json:"is_remote,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.DocumentID == "" {
		writeError(w, apperr.Validation("document_id is required"))
		return
	}

	if req.Location == "" {
		req.Location = "Remote"
	}
	if req.ResultsWanted <= 0 {
		req.ResultsWanted = 10
	}
	isRemote := true
	if req.IsRemote != nil {
		isRemote = *req.IsRemote
	}

	result, err := h.jobService.MatchJobs(r.Context(), req.DocumentID, req.Location, req.ResultsWanted, isRemote)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SearchJobs proxies a raw search without any resume scoring.
func (h *Handler) SearchJobs(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		writeError(w, apperr.Validation("term is required"))
		return
	}

	location := r.URL.Query().Get("location")
	if location == "" {
		location = "Remote"
	}

	resultsWanted := 10
	if raw := r.URL.Query().Get("results_wanted"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			resultsWanted = parsed
		}
	}

	isRemote := r.URL.Query().Get("is_remote") != "false"

	result, err := h.searcher.Search(r.Context(), term, location, resultsWanted, isRemote)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RunDigest runs the weekly digest immediately.
func (h *Handler) RunDigest(w http.ResponseWriter, r *http.Request) {
	report, err := h.jobService.WeeklyDigest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Link handlers

func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	var create models.LinkCreate
	if err := json.NewDecoder(r.Body).Decode(&create); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}
	if create.URL == "" {
		writeError(w, apperr.Validation("url is required"))
		return
	}

	link, err := h.linkRepo.Create(r.Context(), userID, &create)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	if _, err := h.userRepo.GetByID(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	links, err := h.linkRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"links": links,
		"count": len(links),
	})
}

func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	var update models.LinkUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, apperr.Validation("invalid request body: %v", err))
		return
	}

	link, err := h.linkRepo.Update(r.Context(), mux.Vars(r)["id"], &update)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.linkRepo.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"embedding_queue": h.embService.QueueLength(),
	})
}
