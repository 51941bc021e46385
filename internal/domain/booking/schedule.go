package booking

import (
	"fmt"
	"time"

	"rentverse/internal/domain/shared/daterange"
	"rentverse/internal/domain/shared/money"
)

type ScheduleParams struct {
	BookingID BookingID
	Total     money.Money
	Count     int
	Start     time.Time
	Now       time.Time
}

// GenerateSchedule splits the booking total into Count monthly
// installments starting at Start. Amounts are allocated in minor units:
// floor(total/count) each, remainder cents on the last installment, so
// the schedule always sums back to the total exactly. Due dates keep the
// start's day-of-month; overflow days are normalized by time.AddDate.
func GenerateSchedule(params ScheduleParams) ([]*Installment, error) {
	if params.Count < 1 {
		return nil, ErrInstallmentCountInvalid
	}
	if params.Total.Amount <= 0 {
		return nil, ErrTotalInvalid
	}
	shares, err := params.Total.Split(params.Count)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	start := daterange.Truncate(params.Start)

	installments := make([]*Installment, params.Count)
	for i := 0; i < params.Count; i++ {
		installments[i] = &Installment{
			ID:        fmt.Sprintf("%s-%d", params.BookingID, i+1),
			BookingID: params.BookingID,
			Number:    i + 1,
			Amount:    shares[i],
			DueDate:   start.AddDate(0, i, 0),
			Status:    InstallmentUnpaid,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return installments, nil
}
