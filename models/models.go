package models

import (
	"time"
)

// ProductKey identifies a product in the catalog and in persisted orders.
type ProductKey string

const (
	ProductBook     ProductKey = "Book"
	ProductToolkit  ProductKey = "Toolkit"
	ProductIEAnnual ProductKey = "IE_Annual"
	ProductBundle   ProductKey = "Bundle"
)

// Step is a position in the funnel. Steps only advance through the
// transition function in the funnel package.
type Step string

const (
	StepEntry        Step = "entry"
	StepQuiz         Step = "quiz"
	StepResults      Step = "results"
	StepToolkitOffer Step = "toolkit-offer"
	StepBookOffer    Step = "book-offer"
	StepIEOffer      Step = "ie-offer"
	StepBundleOffer  Step = "bundle-offer"
	StepCheckout     Step = "checkout"
	StepSuccess      Step = "success"
)

// FunnelStateVersion is the current schema version for client-held state.
// LoadState migrates older blobs forward on load.
const FunnelStateVersion = 1

// SourceTracking carries attribution through the funnel into the order.
type SourceTracking struct {
	Source   string `json:"source,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Event    string `json:"event,omitempty"`
	Referral string `json:"referral,omitempty"`
	SrcBook  bool   `json:"srcBook,omitempty"`
}

// UserData holds contact fields collected during the funnel. Optional until
// the visitor reaches checkout.
type UserData struct {
	UserID    string `json:"userId,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Email     string `json:"email,omitempty"`
	NdaSigned bool   `json:"ndaSigned,omitempty"`
}

// FunnelState is the single source of truth for one visitor's progress.
// It is client-held; the server only ever sees it as a value passed into
// the pure transition functions.
type FunnelState struct {
	Version         int            `json:"version"`
	Step            Step           `json:"step"`
	InfluenceStyle  string         `json:"influenceStyle,omitempty"`
	SecondaryStyle  string         `json:"secondaryStyle,omitempty"`
	WantsToolkit    bool           `json:"wantsToolkit"`
	WantsBook       bool           `json:"wantsBook"`
	WantsIE         bool           `json:"wantsIE"`
	WantsBundle     bool           `json:"wantsBundle"`
	DeclinedToolkit bool           `json:"declinedToolkit"`
	DeclinedBook    bool           `json:"declinedBook"`
	DeclinedIE      bool           `json:"declinedIE"`
	Cart            []ProductKey   `json:"cart"`
	SourceTracking  SourceTracking `json:"sourceTracking"`
	UserData        *UserData      `json:"userData,omitempty"`
}

// InCart reports whether the given product key is already in the cart.
func (s FunnelState) InCart(key ProductKey) bool {
	for _, k := range s.Cart {
		if k == key {
			return true
		}
	}
	return false
}

// DeclineCount returns how many of the three individual offers were declined.
func (s FunnelState) DeclineCount() int {
	count := 0
	for _, declined := range []bool{s.DeclinedToolkit, s.DeclinedBook, s.DeclinedIE} {
		if declined {
			count++
		}
	}
	return count
}

// Product is an immutable catalog entry. Prices are decimal dollars.
type Product struct {
	Key            ProductKey `json:"key"`
	Name           string     `json:"name"`
	Price          float64    `json:"price"`
	PriceReference string     `json:"priceReference"`
	Features       []string   `json:"features,omitempty"`
}

// LineItem is a priced reference to one product, used to build a provider
// checkout session.
type LineItem struct {
	PriceReference string `json:"priceReference"`
	Quantity       int64  `json:"quantity"`
}

// Purchase record status values. Terminal states only; a record never
// transitions backward.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
)

// PurchaseRecord is the durable representation of an order, keyed by the
// provider's session id.
type PurchaseRecord struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	SessionID   string       `json:"externalSessionId"`
	Products    []ProductKey `json:"products"`
	Total       float64      `json:"total"`
	Status      string       `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// IsCompleted reports whether the record reached its terminal paid state.
func (r *PurchaseRecord) IsCompleted() bool {
	return r.Status == OrderStatusCompleted
}

// CompletionDetails carries the fields applied when a pending order is
// confirmed by the payment provider.
type CompletionDetails struct {
	UserID      string
	Products    []ProductKey
	Total       float64
	CompletedAt time.Time
}

// WebhookEventAudit is an append-only record of one verified inbound
// provider event. Never mutated after insert.
type WebhookEventAudit struct {
	ID         string    `json:"id"`
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	Payload    string    `json:"payload"`
	Processed  bool      `json:"processed"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Profile is a stored visitor profile with payment markers. The markers are
// flipped exactly once per completed order by the webhook reconciler.
type Profile struct {
	ID           string     `json:"id"`
	Firstname    string     `json:"firstname"`
	Email        string     `json:"email"`
	CodewordHash string     `json:"-"`
	NdaSigned    bool       `json:"ndaSigned"`
	OwnsBook     bool       `json:"ownsBook"`
	OwnsToolkit  bool       `json:"ownsToolkit"`
	IEMember     bool       `json:"ieMember"`
	PaidAt       *time.Time `json:"paidAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
