// Package report renders trade history as downloadable spreadsheets.
package report

import (
	"context"
	"fmt"

	"github.com/jeovahfialho/papertrader/internal/domain"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	SheetName     = "History"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	FileExtension = ".xlsx"

	// Excel built-in number formats
	usdFormat  = `"$"#,##0.00`
	dateFormat = "yyyy-mm-dd hh:mm:ss"
)

var headers = []string{"Symbol", "Side", "Shares", "Price", "Amount", "Transacted"}

type XLSXGenerator struct{}

func NewXLSXGenerator() *XLSXGenerator {
	return &XLSXGenerator{}
}

// History writes one row per trade in the order given.
func (g *XLSXGenerator) History(ctx context.Context, trades []domain.Trade) (fileBytes []byte, err error) {
	log := logger.WithContext(ctx)

	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn("erro ao fechar planilha", zap.Error(closeErr))
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("erro ao renomear planilha: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar estilo: %w", err)
	}

	usdStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(usdFormat)})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar estilo: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(dateFormat)})
	if err != nil {
		return nil, fmt.Errorf("erro ao criar estilo: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellStr(SheetName, cell, header)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", headerStyle); err != nil {
		return nil, fmt.Errorf("erro ao aplicar estilo: %w", err)
	}

	for i, trade := range trades {
		row := i + 2
		_ = f.SetCellStr(SheetName, fmt.Sprintf("A%d", row), trade.Symbol)
		_ = f.SetCellStr(SheetName, fmt.Sprintf("B%d", row), string(trade.Side()))
		_ = f.SetCellInt(SheetName, fmt.Sprintf("C%d", row), int(trade.Shares))
		_ = f.SetCellFloat(SheetName, fmt.Sprintf("D%d", row), trade.Price.InexactFloat64(), 4, 64)
		_ = f.SetCellFloat(SheetName, fmt.Sprintf("E%d", row), trade.Amount().InexactFloat64(), 2, 64)
		_ = f.SetCellValue(SheetName, fmt.Sprintf("F%d", row), trade.Timestamp.UTC())
	}

	if len(trades) > 0 {
		last := len(trades) + 1
		_ = f.SetCellStyle(SheetName, "D2", fmt.Sprintf("E%d", last), usdStyle)
		_ = f.SetCellStyle(SheetName, "F2", fmt.Sprintf("F%d", last), dateStyle)
	}

	_ = f.SetColWidth(SheetName, "A", "B", 10)
	_ = f.SetColWidth(SheetName, "C", "E", 14)
	_ = f.SetColWidth(SheetName, "F", "F", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("erro ao gerar planilha: %w", err)
	}

	log.Debug("planilha de histórico gerada", zap.Int("rows", len(trades)))

	return buf.Bytes(), nil
}

func strPtr(s string) *string {
	return &s
}
