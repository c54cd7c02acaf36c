package portrait

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"portrait-studio-server/modules/common/utils"
)

const (
	sessionCookie     = "portrait_session"
	multipartOverhead = 1 << 20
)

// Sessions - where the handler finds the controller of a browser session
type Sessions interface {
	Create() (string, *Controller)
	Controller(sessionID string) (*Controller, bool)
}

type Handler struct {
	sessions  Sessions
	maxUpload int64
	page      *Page
}

func NewHandler(sessions Sessions, maxUploadBytes int64) *Handler {
	return &Handler{
		sessions:  sessions,
		maxUpload: maxUploadBytes,
		page:      NewPage(),
	}
}

// RegisterRoutes - page and session API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.HandleIndex).Methods("GET")
	r.HandleFunc("/api/sessions", h.HandleCreateSession).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}", h.HandleGetState).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/image", h.HandleSelectImage).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/fields", h.HandleUpdateFields).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	log.Info().Msg("✅ [Portrait] Routes registered: /, /api/sessions/...")
}

// HandleIndex - GET /
// Renders the page for the session in the cookie, creating one when needed.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	var (
		sessionID string
		ctrl      *Controller
	)
	if c, err := r.Cookie(sessionCookie); err == nil {
		if found, ok := h.sessions.Controller(c.Value); ok {
			sessionID, ctrl = c.Value, found
		}
	}
	if ctrl == nil {
		sessionID, ctrl = h.sessions.Create()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Render(w, sessionID, NewStateView(ctrl.State()), h.maxUpload); err != nil {
		log.Error().Err(err).Msg("❌ [Portrait] Failed to render page")
	}
}

// HandleCreateSession - POST /api/sessions
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, ctrl := h.sessions.Create()
	writeJSON(w, http.StatusCreated, Response{
		Success:   true,
		SessionID: sessionID,
		State:     NewStateView(ctrl.State()),
	})
}

// HandleGetState - GET /api/sessions/{sessionId}
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, SessionID: sessionID, State: NewStateView(ctrl.State())})
}

// HandleSelectImage - POST /api/sessions/{sessionId}/image, multipart field "image"
func (h *Handler) HandleSelectImage(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	file, err := h.readUpload(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ [Portrait] Invalid upload request")
		writeJSON(w, http.StatusBadRequest, Response{
			SessionID:    sessionID,
			State:        NewStateView(ctrl.State()),
			ErrorKind:    KindRead.String(),
			ErrorMessage: MsgRead,
		})
		return
	}

	state, err := ctrl.SelectImage(file)
	h.respond(w, sessionID, state, err)
}

// HandleUpdateFields - PUT /api/sessions/{sessionId}/fields
func (h *Handler) HandleUpdateFields(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req FieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("⚠️ [Portrait] Invalid fields request")
		writeJSON(w, http.StatusBadRequest, Response{
			SessionID:    sessionID,
			State:        NewStateView(ctrl.State()),
			ErrorMessage: "Invalid request format",
		})
		return
	}

	state := ctrl.UpdateFields(req.ClothingStyle, req.Scenery)
	h.respond(w, sessionID, state, nil)
}

// HandleGenerate - POST /api/sessions/{sessionId}/generate
// Blocks until the generation finishes; the page also gets every state over the websocket.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	sessionID, ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	log.Info().Msgf("🚀 [Portrait] Generate requested for session %s", sessionID)
	state, err := ctrl.Submit(r.Context())
	h.respond(w, sessionID, state, err)
}

func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (string, *Controller, bool) {
	sessionID := mux.Vars(r)["sessionId"]
	ctrl, ok := h.sessions.Controller(sessionID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"success":      false,
			"errorMessage": "Session not found",
		})
		return "", nil, false
	}
	return sessionID, ctrl, true
}

// readUpload - the "image" part; oversized files are returned without their content
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (utils.BinaryFile, error) {
	limit := h.maxUpload + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return utils.BinaryFile{Size: tooLarge.Limit}, nil
		}
		return utils.BinaryFile{}, err
	}

	f, header, err := r.FormFile("image")
	if err != nil {
		return utils.BinaryFile{}, err
	}
	defer f.Close()

	file := utils.BinaryFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
	}
	if header.Size > h.maxUpload {
		return file, nil
	}

	data, err := io.ReadAll(io.LimitReader(f, h.maxUpload+1))
	if err != nil {
		return utils.BinaryFile{}, err
	}
	file.Data = data
	file.Size = int64(len(data))
	return file, nil
}

func (h *Handler) respond(w http.ResponseWriter, sessionID string, state State, err error) {
	resp := Response{
		Success:   err == nil,
		SessionID: sessionID,
		State:     NewStateView(state),
	}
	status := http.StatusOK
	if err != nil {
		resp.ErrorKind = KindOf(err).String()
		resp.ErrorMessage = UserMessage(err)
		status = statusFor(err)
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch KindOf(err) {
	case KindValidation, KindRead:
		return http.StatusBadRequest
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindUnsupportedImage:
		return http.StatusUnsupportedMediaType
	case KindBusy:
		return http.StatusConflict
	case KindPolicyRejection:
		return http.StatusUnprocessableEntity
	case KindModelOutput, KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("❌ [Portrait] Failed to encode response")
	}
}
