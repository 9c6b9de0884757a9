package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/owetrack/owetrack/internal/core/domain"
)

func TestTransaction_IsDraft(t *testing.T) {
	token := "draft-token"
	contactID := "contact-1"

	tests := []struct {
		name string
		txn  domain.Transaction
		want bool
	}{
		{
			name: "draft has token and no contact",
			txn: domain.Transaction{
				DraftToken: &token,
				Amount:     decimal.NewFromInt(10),
			},
			want: true,
		},
		{
			name: "finalized has contact and no token",
			txn: domain.Transaction{
				ContactID: &contactID,
				Amount:    decimal.NewFromInt(10),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.txn.IsDraft())
		})
	}
}

func TestTransaction_IsCancelled(t *testing.T) {
	now := time.Now()

	live := domain.Transaction{Amount: decimal.NewFromInt(5)}
	cancelled := domain.Transaction{Amount: decimal.NewFromInt(5), DeletedAt: &now}

	assert.False(t, live.IsCancelled())
	assert.True(t, cancelled.IsCancelled())
}

func TestContact_IsLinked(t *testing.T) {
	refUserID := "user-2"
	empty := ""

	assert.False(t, (&domain.Contact{}).IsLinked())
	assert.False(t, (&domain.Contact{RefUserID: &empty}).IsLinked())
	assert.True(t, (&domain.Contact{RefUserID: &refUserID}).IsLinked())
}
