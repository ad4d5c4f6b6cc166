package record

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kifu/internal/bootstrap"
	"kifu/internal/domain/kif"
	errs "kifu/internal/errors"
	"kifu/internal/httpresponse"
	recorduc "kifu/internal/usecase/record"
)

type RecordHandler struct {
	cfg      bootstrap.Config
	log      *zap.SugaredLogger
	recordUC *recorduc.RecordUseCase
	upgrader websocket.Upgrader
}

// StreamFrame is one message of the websocket ingestion protocol. Lines are
// already decoded text; End closes the input.
type StreamFrame struct {
	Lines []string `json:"lines,omitempty"`
	End   bool     `json:"end,omitempty"`
}

type StreamReply struct {
	Record *kif.Record `json:"record,omitempty"`
	Error  string      `json:"error,omitempty"`
}

type MoveResponse struct {
	Key      string         `json:"key"`
	Sequence kif.SequenceID `json:"sequence"`
	Number   int            `json:"number"`
	Move     kif.MoveRecord `json:"move"`
}

type LineResponse struct {
	Key      string           `json:"key"`
	Sequence kif.SequenceID   `json:"sequence"`
	Moves    []kif.MoveRecord `json:"moves"`
}

func NewRecordHandler(cfg bootstrap.Config, log *zap.SugaredLogger, recordUC *recorduc.RecordUseCase) *RecordHandler {
	return &RecordHandler{
		cfg:      cfg,
		log:      log,
		recordUC: recordUC,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RecordHandler) Routes(r chi.Router) {
	r.Post("/records", h.HandleImport)
	r.Get("/records", h.HandleList)
	r.Get("/records/stream", h.HandleStream)
	r.Get("/records/{key}", h.HandleGet)
	r.Get("/records/{key}/line/{sequence}", h.HandleLine)
	r.Get("/records/{key}/sequences", h.HandleSequences)
	r.Get("/records/{key}/sequences/{sequence}/moves/{n}", h.HandleMove)
}

// HandleImport godoc
// @Summary Загрузка партии в формате KIF
// @Description Разбирает KIF (Shift_JIS или UTF-8), строит дерево вариантов и сохраняет его
// @Tags records
// @Accept plain
// @Produce json
// @Param name query string false "Название партии"
// @Param encoding query string false "Кодировка исходника: auto, utf-8, shift_jis"
// @Success 200 {object} kif.Record
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 422 {object} httpresponse.ErrorResponse
// @Router /records [post]
func (h *RecordHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	defer body.Close()

	name := r.URL.Query().Get("name")
	rec, err := h.recordUC.Import(r.Context(), name, body, r.URL.Query().Get("encoding"))
	if err != nil {
		h.writeError(w, "import", err)
		return
	}

	h.log.Infof("New record imported with key: %s", rec.Key)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rec)
}

// HandleList godoc
// @Summary Список сохранённых партий
// @Tags records
// @Produce json
// @Param page query int false "Номер страницы, с 1"
// @Success 200 {object} kif.RecordPage
// @Failure 400 {object} httpresponse.ErrorResponse
// @Router /records [get]
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	pageNum := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, "list", errs.ErrInvalidPage)
			return
		}
		pageNum = n
	}

	page, err := h.recordUC.List(r.Context(), pageNum)
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, page)
}

// HandleGet godoc
// @Summary Получение партии по ключу
// @Tags records
// @Produce json
// @Param key path string true "Ключ партии"
// @Success 200 {object} kif.Record
// @Failure 404 {object} httpresponse.ErrorResponse
// @Router /records/{key} [get]
func (h *RecordHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	rec, err := h.recordUC.Get(r.Context(), key)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, rec)
}

// HandleLine godoc
// @Summary Ходы от начала партии до конца последовательности
// @Tags records
// @Produce json
// @Param key path string true "Ключ партии"
// @Param sequence path int true "Идентификатор последовательности"
// @Success 200 {object} LineResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 404 {object} httpresponse.ErrorResponse
// @Router /records/{key}/line/{sequence} [get]
func (h *RecordHandler) HandleLine(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	seq, err := strconv.Atoi(chi.URLParam(r, "sequence"))
	if err != nil {
		h.log.Error("HandleLine: bad sequence id: ", err)
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "sequence must be an integer")
		return
	}

	moves, err := h.recordUC.Line(r.Context(), key, kif.SequenceID(seq))
	if err != nil {
		h.writeError(w, "line", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, LineResponse{
		Key:      key,
		Sequence: kif.SequenceID(seq),
		Moves:    moves,
	})
}

// HandleSequences godoc
// @Summary Структура дерева вариантов
// @Tags records
// @Produce json
// @Param key path string true "Ключ партии"
// @Success 200 {array} kif.SequenceOutline
// @Failure 404 {object} httpresponse.ErrorResponse
// @Router /records/{key}/sequences [get]
func (h *RecordHandler) HandleSequences(w http.ResponseWriter, r *http.Request) {
	outline, err := h.recordUC.Sequences(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.writeError(w, "sequences", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, outline)
}

// HandleMove godoc
// @Summary Один ход последовательности по номеру
// @Tags records
// @Produce json
// @Param key path string true "Ключ партии"
// @Param sequence path int true "Идентификатор последовательности"
// @Param n path int true "Номер хода"
// @Success 200 {object} MoveResponse
// @Failure 400 {object} httpresponse.ErrorResponse
// @Failure 404 {object} httpresponse.ErrorResponse
// @Router /records/{key}/sequences/{sequence}/moves/{n} [get]
func (h *RecordHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	seq, err := strconv.Atoi(chi.URLParam(r, "sequence"))
	if err != nil {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "sequence must be an integer")
		return
	}
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		httpresponse.WriteErrorWithStatus(w, http.StatusBadRequest, "move number must be an integer")
		return
	}

	move, err := h.recordUC.MoveAt(r.Context(), key, kif.SequenceID(seq), n)
	if err != nil {
		h.writeError(w, "move", err)
		return
	}
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, MoveResponse{
		Key:      key,
		Sequence: kif.SequenceID(seq),
		Number:   n,
		Move:     move,
	})
}

// HandleStream принимает строки KIF по websocket. The tree is only built and
// stored once the client sends the end frame.
func (h *RecordHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("upgrade error:", err)
		return
	}
	defer conn.Close()

	limit := h.cfg.MaxUploadBytes
	if limit > 0 {
		conn.SetReadLimit(limit)
	}

	name := r.URL.Query().Get("name")
	parser := h.recordUC.NewParser()
	var received int64

	for {
		var frame StreamFrame
		if err = conn.ReadJSON(&frame); err != nil {
			h.log.Warnf("stream closed before end frame: %v", err)
			return
		}

		for _, line := range frame.Lines {
			// as many bytes as the line takes in a file
			received += int64(len(line)) + 1
			if limit > 0 && received > limit {
				h.log.Warnf("stream rejected after %d bytes", received)
				_ = conn.WriteJSON(StreamReply{Error: errs.ErrRecordTooLarge.Error()})
				return
			}
			if _, err = parser.Feed(line); err != nil {
				h.log.Warnf("stream rejected: %v", err)
				_ = conn.WriteJSON(StreamReply{Error: err.Error()})
				return
			}
		}

		if !frame.End {
			continue
		}

		rec, err := h.recordUC.Finish(name, parser)
		if err == nil {
			rec, err = h.recordUC.Save(r.Context(), rec)
		}
		if err != nil {
			h.log.Error(err)
			_ = conn.WriteJSON(StreamReply{Error: err.Error()})
			return
		}
		if err = conn.WriteJSON(StreamReply{Record: &rec}); err != nil {
			h.log.Error("write error:", err)
		}
		return
	}
}

func (h *RecordHandler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s: %v", op, err)
		httpresponse.WriteErrorWithStatus(w, status, errs.ErrInternal.Error())
		return
	}
	h.log.Warnf("%s: %v", op, err)
	httpresponse.WriteErrorWithStatus(w, status, err.Error())
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, errs.ErrRecordTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errs.ErrOrphanBranchPoint), errors.Is(err, errs.ErrEmptyRecord):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrUnsupportedEncoding), errors.Is(err, errs.ErrInvalidPage):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrRecordNotFound), errors.Is(err, errs.ErrUnknownSequence),
		errors.Is(err, errs.ErrMoveNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
