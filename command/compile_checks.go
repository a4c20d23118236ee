package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[TransitionOrderMessage]     = (*TransitionOrderCommand)(nil)
	_ gocmd.Commander[CreatePaymentIntentMessage] = (*CreatePaymentIntentCommand)(nil)
	_ gocmd.Commander[CapturePaymentMessage]      = (*CapturePaymentCommand)(nil)
	_ gocmd.Commander[RefundPaymentMessage]       = (*RefundPaymentCommand)(nil)
	_ gocmd.Commander[MarkPaymentFailedMessage]   = (*MarkPaymentFailedCommand)(nil)
)
