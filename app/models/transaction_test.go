package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinalTransactionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{TransactionStatusApproved, true},
		{TransactionStatusDeclined, true},
		{TransactionStatusVoided, true},
		{TransactionStatusError, true},
		{TransactionStatusPending, false},
		{"", false},
		{"UNKNOWN", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsFinalTransactionStatus(tt.status), tt.status)
	}
}
