package policies

import (
	"context"
	"time"

	"rentverse/internal/domain/shared/money"
)

type ContractInput struct {
	BookingID        string
	PropertyTitle    string
	PropertyAddress  string
	TenantName       string
	LandlordName     string
	Start            time.Time
	End              time.Time
	Total            money.Money
	SecurityDeposit  money.Money
	InstallmentCount int
}

// ContractsPort renders and stores the rental contract, returning a
// stable reference (URL or storage key) to the stored document.
type ContractsPort interface {
	Issue(ctx context.Context, input ContractInput) (string, error)
}
