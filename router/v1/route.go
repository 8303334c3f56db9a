package v1

import (
	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/gmopay/handler"
)

// Handlers groups the handlers mounted under /v1
type Handlers struct {
	Members        *handler.MemberHandler
	Merchants      *handler.MerchantHandler
	PaymentMethods *handler.PaymentMethodHandler
	Transactions   *handler.TransactionHandler
	Logs           *handler.LogsHandler
}

// Routes registers all API routes
func Routes(r chi.Router, h Handlers) {
	if m := h.Members; m != nil {
		r.Route("/members", func(r chi.Router) {
			r.Post("/", m.Create)
			r.Post("/inquiry", m.Inquiry)
			r.Post("/delete", m.Delete)
		})
	}

	if m := h.Merchants; m != nil {
		r.Route("/merchants", func(r chi.Router) {
			r.Post("/", m.Create)
			r.Post("/inquiry", m.Inquiry)
			r.Post("/delete", m.Delete)
		})
	}

	if pm := h.PaymentMethods; pm != nil {
		r.Post("/create-token", pm.CreateToken)
		r.Post("/verify-card", pm.VerifyCard)
		r.Post("/store-card", pm.StoreCard)
		r.Post("/card-details", pm.CardDetails)
		r.Post("/cards/search", pm.SearchCards)
		r.Post("/cards/delete", pm.DeleteCard)
		r.Post("/wallet/google-pay", pm.GooglePay)
		r.Post("/wallet/apple-pay", pm.ApplePay)
	}

	if tx := h.Transactions; tx != nil {
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", tx.Create)
			r.Post("/capture", tx.Capture)
			r.Post("/cancel", tx.Cancel)
			r.Post("/update", tx.Update)
			r.Post("/inquiry", tx.Inquiry)
			r.Post("/3ds/finalize", tx.FinalizeThreeDS)

			// legacy id/pass flow
			r.Post("/entry", tx.Entry)
			r.Post("/exec", tx.Exec)
			r.Post("/alter", tx.Alter)
		})
	}

	if l := h.Logs; l != nil {
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", l.ListLogs)
			r.Get("/errors", l.GetErrorLogs)
			r.Get("/requests/{requestID}", l.GetRequestLogs)
		})
	}
}
