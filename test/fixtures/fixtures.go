package fixtures

import (
	"time"

	"github.com/lexvia/case-gateway/internal/model"
)

func NewInboundEvent(phone, name, text, messageID string) model.InboundEvent {
	return model.InboundEvent{
		Phone:     phone,
		Name:      name,
		Text:      text,
		MessageID: messageID,
		Timestamp: time.Now(),
	}
}

func InboundEventDefault(text, messageID string) model.InboundEvent {
	return NewInboundEvent("+54 9 11 1234-5678", "Juan Perez", text, messageID)
}

func NewTestTicket(customerID int64, code string, status model.TicketStatus) *model.Ticket {
	return &model.Ticket{
		Code:          code,
		CustomerID:    customerID,
		Title:         "Consulta",
		Status:        status,
		Priority:      model.TicketPriorityNormal,
		Category:      model.CategoryOther,
		Channel:       model.ChannelWhatsApp,
		LastMessageAt: time.Now(),
	}
}

// Sample texts per classifier outcome, for table-driven tests.
var (
	HighPriorityTexts = []string{
		"es urgente, necesito una respuesta ya",
		"el sistema está caído en producción",
		"tengo un error al cargar la factura",
	}

	UrgentPriorityTexts = []string{
		"esto es una amenaza, voy a iniciar acciones legales",
		"sospecho un fraude con mi cuenta",
		"tengo un cliente enojado esperando",
	}

	BillingTexts = []string{
		"quiero consultar el precio del plan",
		"no me llegó la factura de este mes",
		"hice el pago y no se acreditó",
	}

	NeutralTexts = []string{
		"hola, buen día",
		"gracias por la atención",
		"quedo a la espera",
	}
)
