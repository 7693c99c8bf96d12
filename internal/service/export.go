package service

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// 负载分级 → 单元格底色（与看板热力图一致）
var bandFillColors = map[string]string{
	"empty":       "#FFFFFF",
	"low":         "#D9EAD3",
	"medium":      "#FFF2CC",
	"high":        "#FCE5CD",
	"over":        "#F4CCCC",
	"non-working": "#EFEFEF",
}

// GenerateCapacityMatrixExport 生成容量矩阵 Excel 文件
// 行 = 单元，列 = 日期，单元格 = 占用% ，底色按负载分级。
func GenerateCapacityMatrixExport(matrix *CapacityMatrix) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，只在出错路径上 Close

	sheetName := "Capacity"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 表头：Cell + 日期列
	if err := setCell(f, sheetName, 1, 1, "Cell", headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, date := range matrix.Dates {
		if err := setCell(f, sheetName, i+2, 1, date, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	bandStyles := map[string]int{}
	for band, color := range bandFillColors {
		styleID, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{color},
				Pattern: 1,
			},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create band style: %w", err)
		}
		bandStyles[band] = styleID
	}

	for r, row := range matrix.Rows {
		rowNum := r + 2
		if err := setCell(f, sheetName, 1, rowNum, row.CellName, 0); err != nil {
			f.Close()
			return nil, err
		}
		for i, load := range row.Loads {
			value := fmt.Sprintf("%.0f%%", load.Percent)
			if load.Band == "non-working" {
				value = "-"
			}
			if err := setCell(f, sheetName, i+2, rowNum, value, bandStyles[load.Band]); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	f.Close()
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, value interface{}, styleID int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	if styleID != 0 {
		if err := f.SetCellStyle(sheet, cell, cell, styleID); err != nil {
			return fmt.Errorf("failed to set style on cell %s: %w", cell, err)
		}
	}
	return nil
}
