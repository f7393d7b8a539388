package deliver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/dwinston/dbaudit/internal/config"
	"github.com/dwinston/dbaudit/internal/logger"
	"github.com/dwinston/dbaudit/internal/output"
)

func emailSpec(to ...string) *config.EmailSpec {
	return &config.EmailSpec{
		From: "audit@example.com",
		To:   to,
		Host: "mail.example.com",
		Port: 2525,
	}
}

func TestEmailSink_OneMessagePerRecipient(t *testing.T) {
	sink := NewEmailSink(logger.NewNop(), emailSpec("a@x.com", "b@y.com", "c@z.com"))
	var sent []*mail.Msg
	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		sent = append(sent, msg)
		return nil
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.NoError(t, err)
	assert.Len(t, sent, 3)
}

func TestEmailSink_PartialFailureSucceeds(t *testing.T) {
	sink := NewEmailSink(logger.NewNop(), emailSpec("a@x.com", "b@y.com"))
	calls := 0
	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		calls++
		if calls == 1 {
			return errors.New("mailbox full")
		}
		return nil
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.NoError(t, err, "one surviving recipient is a success")
	assert.Equal(t, 2, calls)
}

func TestEmailSink_AllRecipientsFail(t *testing.T) {
	sink := NewEmailSink(logger.NewNop(), emailSpec("a@x.com", "b@y.com"))
	sink.send = func(ctx context.Context, msg *mail.Msg) error {
		return errors.New("connection refused")
	}

	err := sink.Deliver(context.Background(), textDelivery(nonEmptyReport(t)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mail.example.com:2525")
}

func TestEmailSink_HTMLRendersForMail(t *testing.T) {
	sink := NewEmailSink(logger.NewNop(), emailSpec("a@x.com"))
	sink.send = func(ctx context.Context, msg *mail.Msg) error { return nil }

	f, err := output.Lookup(output.FormatHTML)
	require.NoError(t, err)

	// Options say no email mode; the sink must flip it on itself.
	err = sink.Deliver(context.Background(), Delivery{
		Report:    nonEmptyReport(t),
		Formatter: f,
		Options:   output.Options{EmailMode: false},
	})
	require.NoError(t, err)
}
