package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshua-takyi/bookings/internal/models"
)

type scheduleAction string

const (
	actionCreated   scheduleAction = "created"
	actionUpdated   scheduleAction = "updated"
	actionCancelled scheduleAction = "cancelled"
)

const defaultSessionName = "Sessão"

// brDate and brTime format t in loc the way pt-BR locales print dates (02/01/2006, 15:04).
func brDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006")
}

func brTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("15:04")
}

func brPrice(price float64) string {
	return "R$" + strings.Replace(fmt.Sprintf("%.2f", price), ".", ",", 1)
}

func scheduleMessage(action scheduleAction, start time.Time, loc *time.Location) string {
	day, at := brDate(start, loc), brTime(start, loc)
	switch action {
	case actionCreated:
		return fmt.Sprintf("Seu agendamento foi marcado para o dia %s às %s.", day, at)
	case actionUpdated:
		return fmt.Sprintf("Sua sessão foi reagendada para o dia %s às %s.", day, at)
	case actionCancelled:
		return fmt.Sprintf("Seu agendamento para o dia %s às %s foi cancelado.", day, at)
	}
	return ""
}

func paymentMessage(p *models.Payment) string {
	switch p.Status {
	case models.PaymentPaid:
		return fmt.Sprintf("Seu pagamento de %s foi efetuado com sucesso", brPrice(p.Price))
	case models.PaymentCancelled:
		return "Seu pagamento foi cancelado"
	case models.PaymentPending:
		return "Seu pagamento ainda não foi confirmado"
	case models.PaymentRefunded:
		return fmt.Sprintf("Seu pagamento de %s foi reembolsado", brPrice(p.Price))
	}
	return ""
}

func clientLabel(u *models.User) string {
	if u == nil {
		return "este usuário"
	}
	return fmt.Sprintf("%s (%s, %s)", u.Name, u.Email, u.Phone)
}

// sessionDate is the human-readable description stored on a Session.
func sessionDate(u *models.User, start time.Time, loc *time.Location, rescheduled bool) string {
	verb := "está marcada"
	if rescheduled {
		verb = "foi reagendada"
	}
	return fmt.Sprintf("A sessão com %s %s para a data %s às %s",
		clientLabel(u), verb, brDate(start, loc), brTime(start, loc))
}
