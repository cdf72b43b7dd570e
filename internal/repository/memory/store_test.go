package memory

import (
	"testing"

	"github.com/set-night/turbostart/internal/domain"
	"github.com/set-night/turbostart/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) domain.Store { return New() })
}
