package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Styler reapplies presentation to a freshly written workbook.
// Implementations take their styling from a source workbook, typically
// the template the file was first generated from.
type Styler interface {
	Restyle(path, source string) error
}

// NopStyler leaves written workbooks as they are.
type NopStyler struct{}

func (NopStyler) Restyle(string, string) error { return nil }

// WorkbookStyler copies cell styles and column widths from the source
// workbook onto a freshly written one, over the cell range the two
// files share. A source the engine cannot parse is skipped rather than
// failing the write that preceded it.
type WorkbookStyler struct{}

func (WorkbookStyler) Restyle(path, source string) error {
	src, err := excelize.OpenFile(source)
	if err != nil {
		if isFormatErr(err) {
			return nil
		}
		return fmt.Errorf("tabular: open style source %s: %w", source, err)
	}
	defer src.Close()

	dst, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("tabular: open %s: %w", path, err)
	}
	defer dst.Close()

	srcSheets := src.GetSheetList()
	dstSheets := dst.GetSheetList()
	if len(srcSheets) == 0 || len(dstSheets) == 0 {
		return nil
	}
	srcRows, err := src.GetRows(srcSheets[0])
	if err != nil {
		return fmt.Errorf("tabular: read style source %s: %w", source, err)
	}
	dstRows, err := dst.GetRows(dstSheets[0])
	if err != nil {
		return fmt.Errorf("tabular: read %s: %w", path, err)
	}
	if len(srcRows) == 0 || len(dstRows) == 0 {
		return nil
	}
	rows := min(len(srcRows), len(dstRows))
	cols := min(len(srcRows[0]), len(dstRows[0]))

	memo := map[int]int{}
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			cell, err := excelize.CoordinatesToCellName(c, r)
			if err != nil {
				return fmt.Errorf("tabular: restyle %s: %w", path, err)
			}
			sid, err := src.GetCellStyle(srcSheets[0], cell)
			if err != nil {
				return fmt.Errorf("tabular: restyle %s: %w", path, err)
			}
			if sid == 0 {
				continue
			}
			did, ok := memo[sid]
			if !ok {
				style, err := src.GetStyle(sid)
				if err != nil {
					return fmt.Errorf("tabular: restyle %s: %w", path, err)
				}
				did, err = dst.NewStyle(style)
				if err != nil {
					return fmt.Errorf("tabular: restyle %s: %w", path, err)
				}
				memo[sid] = did
			}
			if err := dst.SetCellStyle(dstSheets[0], cell, cell, did); err != nil {
				return fmt.Errorf("tabular: restyle %s: %w", path, err)
			}
		}
	}
	for c := 1; c <= cols; c++ {
		name, err := excelize.ColumnNumberToName(c)
		if err != nil {
			return fmt.Errorf("tabular: restyle %s: %w", path, err)
		}
		width, err := src.GetColWidth(srcSheets[0], name)
		if err != nil {
			continue
		}
		if err := dst.SetColWidth(dstSheets[0], name, name, width); err != nil {
			return fmt.Errorf("tabular: restyle %s: %w", path, err)
		}
	}
	if err := dst.Save(); err != nil {
		return fmt.Errorf("tabular: save %s: %w", path, err)
	}
	return nil
}
