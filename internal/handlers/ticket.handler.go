package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/lexvia/case-gateway/internal/model"
	"github.com/lexvia/case-gateway/internal/repository"
	"github.com/lexvia/case-gateway/internal/services"
	xhttp "github.com/lexvia/case-gateway/pkg/http"
)

type TicketService interface {
	List(ctx context.Context, f model.TicketFilter) ([]*model.Ticket, int64, error)
	Get(ctx context.Context, id int64) (*services.TicketDetail, error)
	Create(ctx context.Context, p model.TicketCreateRequest) (*model.Ticket, error)
	Update(ctx context.Context, id int64, update repository.TicketUpdate) (*model.Ticket, error)
	Reply(ctx context.Context, ticketID int64, text string) (*model.Message, error)
	AddNote(ctx context.Context, ticketID int64, text string) (*model.Message, error)
	Escalate(ctx context.Context, ticketID int64) (*model.Ticket, error)
	CloseByAI(ctx context.Context, ticketID int64) (*model.Ticket, error)
	SetBotPaused(ctx context.Context, customerID int64, paused bool) (*model.Customer, error)
}

type TicketHandler struct {
	svc TicketService
}

func RegisterTicketRoutes(e *router.Group, h *TicketHandler) {
	e.GET("/tickets", h.ListTickets)
	e.GET("/tickets/{id}", h.GetTicket)
	e.POST("/tickets", h.CreateTicket)
	e.PATCH("/tickets/{id}", h.UpdateTicket)
	e.POST("/tickets/{id}/messages", h.ReplyTicket)
	e.POST("/tickets/{id}/escalate", h.EscalateTicket)
	e.POST("/tickets/{id}/close-by-ai", h.CloseTicketByAI)
	e.PATCH("/customers/{id}/bot-pause", h.SetBotPause)
}

func NewTicketHandler(svc TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

type listTicketsResponse struct {
	Items []*model.Ticket `json:"items"`
	Total int64           `json:"total"`
}

func (h *TicketHandler) ListTickets(ctx *xhttp.RequestCtx) {
	var f model.TicketFilter

	if v := query(ctx, "status"); v != "" {
		s := model.TicketStatus(v)
		f.Status = &s
	}
	if v := query(ctx, "priority"); v != "" {
		p := model.TicketPriority(v)
		f.Priority = &p
	}
	if v := query(ctx, "customer_id"); v != "" {
		if id, e := strconv.ParseInt(v, 10, 64); e == nil {
			f.CustomerID = &id
		}
	}
	if v := query(ctx, "q"); v != "" {
		f.Query = &v
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, listTicketsResponse{Items: items, Total: total})
}

func (h *TicketHandler) GetTicket(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid ticket id")
		return
	}

	detail, err := h.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "ticket not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, detail)
}

type createTicketRequest struct {
	Title         string `json:"title"`
	CustomerPhone string `json:"customer_phone"`
	CustomerName  string `json:"customer_name"`
	ContactName   string `json:"contact_name"`
	Priority      string `json:"priority"`
	Category      string `json:"category"`
}

func (h *TicketHandler) CreateTicket(ctx *xhttp.RequestCtx) {
	var req createTicketRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	ticket, err := h.svc.Create(ctx, model.TicketCreateRequest{
		Title:         req.Title,
		CustomerPhone: req.CustomerPhone,
		CustomerName:  req.CustomerName,
		ContactName:   req.ContactName,
		Priority:      model.TicketPriority(req.Priority),
		Category:      model.TicketCategory(req.Category),
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, ticket)
}

type updateTicketRequest struct {
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	Category     *string `json:"category"`
	ContactName  *string `json:"contact_name"`
	AssignedToID *int64  `json:"assigned_to_id"`
}

func (h *TicketHandler) UpdateTicket(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid ticket id")
		return
	}

	var req updateTicketRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	var update repository.TicketUpdate
	if req.Status != nil {
		s := model.TicketStatus(*req.Status)
		update.Status = &s
	}
	if req.Priority != nil {
		p := model.TicketPriority(*req.Priority)
		update.Priority = &p
	}
	if req.Category != nil {
		c := model.TicketCategory(*req.Category)
		update.Category = &c
	}
	update.ContactName = req.ContactName
	update.AssignedToID = req.AssignedToID

	ticket, err := h.svc.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "ticket not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, ticket)
}

type replyRequest struct {
	Text     string `json:"text"`
	Internal bool   `json:"internal"`
}

func (h *TicketHandler) ReplyTicket(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid ticket id")
		return
	}

	var req replyRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	var msg *model.Message
	if req.Internal {
		msg, err = h.svc.AddNote(ctx, id, req.Text)
	} else {
		msg, err = h.svc.Reply(ctx, id, req.Text)
	}
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "ticket not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, msg)
}

func (h *TicketHandler) EscalateTicket(ctx *xhttp.RequestCtx) {
	h.summarizeAndClose(ctx, h.svc.Escalate)
}

func (h *TicketHandler) CloseTicketByAI(ctx *xhttp.RequestCtx) {
	h.summarizeAndClose(ctx, h.svc.CloseByAI)
}

func (h *TicketHandler) summarizeAndClose(ctx *xhttp.RequestCtx, op func(context.Context, int64) (*model.Ticket, error)) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid ticket id")
		return
	}

	ticket, err := op(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			writeError(ctx, 404, "ticket not found")
		case errors.Is(err, services.ErrAlreadySummarized):
			writeError(ctx, 409, "ticket already summarized")
		default:
			writeError(ctx, 500, err.Error())
		}
		return
	}
	writeJSON(ctx, 200, ticket)
}

type botPauseRequest struct {
	Paused bool `json:"paused"`
}

func (h *TicketHandler) SetBotPause(ctx *xhttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		writeError(ctx, 400, "invalid customer id")
		return
	}

	var req botPauseRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	customer, err := h.svc.SetBotPaused(ctx, id, req.Paused)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			writeError(ctx, 404, "customer not found")
			return
		}
		writeError(ctx, 500, err.Error())
		return
	}
	writeJSON(ctx, 200, customer)
}
