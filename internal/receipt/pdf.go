package receipt

import (
	"context"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"go.uber.org/zap"
)

type PDFRenderer struct {
	log *zap.Logger
}

func NewPDFRenderer(log *zap.Logger) *PDFRenderer {
	return &PDFRenderer{log: log.Named("receipt.pdf")}
}

func (p *PDFRenderer) Render(ctx context.Context, data Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(30,
		text.NewCol(6, "Payment receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		col.New(6).Add(
			text.New(data.IssuerName, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(data.IssuerEmail, props.Text{Top: 5, Align: align.Right}),
		),
	)

	m.AddRow(25,
		col.New(6).Add(
			text.New("Reference: "+data.Reference, props.Text{Top: 0}),
			text.New("Date paid: "+data.PaidAt, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Paid by", props.Text{Style: fontstyle.Bold}),
			text.New(data.PayerEmail, props.Text{Top: 5}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.Amount+" paid on "+data.PaidAt, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(15,
		col.New(8).Add(
			text.New("Enrollment fee", props.Text{Size: 9}),
			text.New("Applicant "+data.SubjectID+", "+data.PricingPhase+" pricing", props.Text{Size: 8, Top: 4}),
		),
		text.NewCol(4, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9, Style: fontstyle.Bold}),
		text.NewCol(2, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	doc, err := m.Generate()
	if err != nil {
		p.log.Error("render receipt", zap.String("reference", data.Reference), zap.Error(err))
		return nil, err
	}
	return doc.GetBytes(), nil
}
