package contracts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"rentverse/internal/app/policies"
	"rentverse/internal/infra/storage/s3"
)

// Issuer renders the rental contract as a PDF and stores it in object
// storage, returning the public URL.
type Issuer struct {
	Uploader s3.Uploader
	Logger   *slog.Logger
}

func (i *Issuer) Issue(ctx context.Context, input policies.ContractInput) (string, error) {
	if i == nil || i.Uploader == nil {
		return "", errors.New("contracts: uploader not configured")
	}
	if input.BookingID == "" {
		return "", errors.New("contracts: booking id is required")
	}

	pdf, err := render(input)
	if err != nil {
		return "", fmt.Errorf("contracts: render: %w", err)
	}

	key := fmt.Sprintf("contracts/%s.pdf", input.BookingID)
	url, err := i.Uploader.Upload(ctx, key, bytes.NewReader(pdf), "application/pdf")
	if err != nil {
		return "", fmt.Errorf("contracts: upload: %w", err)
	}
	if i.Logger != nil {
		i.Logger.Info("contract issued", "booking_id", input.BookingID, "url", url)
	}
	return url, nil
}

func render(input policies.ContractInput) ([]byte, error) {
	m := maroto.New()

	m.AddRows(
		row.New(14).Add(
			text.NewCol(12, "RENTAL AGREEMENT", props.Text{
				Style: fontstyle.Bold,
				Size:  16,
				Align: align.Center,
			}),
		),
		row.New(8).Add(
			text.NewCol(12, fmt.Sprintf("Agreement reference: %s", input.BookingID), props.Text{Size: 9}),
		),
	)

	m.AddRows(
		labeledRow("Property", input.PropertyTitle),
		labeledRow("Address", input.PropertyAddress),
		labeledRow("Tenant", input.TenantName),
		labeledRow("Landlord", input.LandlordName),
		labeledRow("Term", fmt.Sprintf("%s to %s (inclusive)", input.Start.Format("2006-01-02"), input.End.Format("2006-01-02"))),
		labeledRow("Total rent", input.Total.String()),
		labeledRow("Security deposit", input.SecurityDeposit.String()),
		labeledRow("Installments", fmt.Sprintf("%d monthly payment(s)", input.InstallmentCount)),
	)

	m.AddRows(
		row.New(20),
		row.New(8).Add(
			text.NewCol(6, "Tenant signature: ______________________", props.Text{Size: 9}),
			text.NewCol(6, "Landlord signature: ______________________", props.Text{Size: 9}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func labeledRow(label, value string) core.Row {
	return row.New(7).Add(
		text.NewCol(3, label, props.Text{Style: fontstyle.Bold, Size: 9}),
		col.New(9).Add(text.New(value, props.Text{Size: 9})),
	)
}

var _ policies.ContractsPort = (*Issuer)(nil)
