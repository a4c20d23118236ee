package orders

import "github.com/goliatone/go-orders/core"

type Config = core.Config

type Order = core.Order
type OrderItem = core.OrderItem
type OrderStatus = core.OrderStatus
type Payment = core.Payment
type PaymentStatus = core.PaymentStatus
type Actor = core.Actor
type TimelineEntry = core.TimelineEntry
type VendorCommission = core.VendorCommission
type WebhookEvent = core.WebhookEvent
type WebhookDeadLetter = core.WebhookDeadLetter

type TransitionRequest = core.TransitionRequest
type CreateIntentRequest = core.CreateIntentRequest

type OrderStore = core.OrderStore
type PaymentStore = core.PaymentStore
type TimelineStore = core.TimelineStore
type CommissionStore = core.CommissionStore
type StoreProvider = core.StoreProvider
type PaymentProvider = core.PaymentProvider
type Notifier = core.Notifier
type Logger = core.Logger

func DefaultConfig() Config {
	return core.DefaultConfig()
}
