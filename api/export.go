package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"fintrack/config"
	"fintrack/database"
	"fintrack/middleware"
	"fintrack/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 交易导出处理器
type ExportHandler struct{}

// NewExportHandler 创建导出处理器
func NewExportHandler() *ExportHandler {
	return &ExportHandler{}
}

// exportQuery 按时间范围查询当前用户交易，时间升序
func (h *ExportHandler) exportQuery(c *gin.Context) ([]models.Transaction, string, string, bool) {
	userID := middleware.GetCurrentUserID(c)

	startStr := c.DefaultQuery("start_time", time.Now().AddDate(0, -1, 0).Format("2006-01-02"))
	endStr := c.DefaultQuery("end_time", time.Now().Format("2006-01-02"))

	startTime, err := time.ParseInLocation("2006-01-02", startStr, time.Local)
	if err != nil {
		BadRequest(c, "开始时间格式错误，应为: 2006-01-02")
		return nil, "", "", false
	}
	endTime, err := time.ParseInLocation("2006-01-02", endStr, time.Local)
	if err != nil {
		BadRequest(c, "结束时间格式错误，应为: 2006-01-02")
		return nil, "", "", false
	}
	// 包含结束日期当天
	endTime = endTime.Add(24*time.Hour - time.Second)

	var txs []models.Transaction
	err = database.DB.
		Where("user_id = ? AND transaction_time BETWEEN ? AND ?", userID, startTime, endTime).
		Order("transaction_time").
		Find(&txs).Error
	if err != nil {
		InternalError(c, config.SafeErrorMessage(err, "查询失败"))
		return nil, "", "", false
	}
	return txs, startStr, endStr, true
}

// ExportCSV 导出交易为 CSV
// @Summary 导出交易 CSV
// @Description 导出指定时间范围内的交易记录
// @Tags 交易记录
// @Produce text/csv
// @Security BearerAuth
// @Param start_time query string false "开始时间 (2024-01-01)，默认一个月前"
// @Param end_time query string false "结束时间 (2024-12-31)，默认今天"
// @Success 200 {string} string "CSV 文件"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/csv [get]
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	txs, startStr, endStr, ok := h.exportQuery(c)
	if !ok {
		return
	}

	filename := fmt.Sprintf("transactions_%s_%s.csv", startStr, endStr)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))

	// UTF-8 BOM，避免 Excel 打开乱码
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	w.Write([]string{"ID", "类型", "金额", "类别", "商户", "描述", "交易时间", "自动分类"})
	for _, tx := range txs {
		auto := "否"
		if tx.AutoCategorized {
			auto = "是"
		}
		w.Write([]string{
			fmt.Sprintf("%d", tx.ID),
			tx.Kind,
			fmt.Sprintf("%.2f", tx.Amount),
			tx.Category,
			tx.MerchantName,
			tx.Description,
			tx.TransactionTime.Format("2006-01-02 15:04:05"),
			auto,
		})
	}
	w.Flush()
}

// ExportJSON 导出交易为 JSON
// @Summary 导出交易 JSON
// @Description 导出指定时间范围内的交易记录
// @Tags 交易记录
// @Produce json
// @Security BearerAuth
// @Param start_time query string false "开始时间 (2024-01-01)，默认一个月前"
// @Param end_time query string false "结束时间 (2024-12-31)，默认今天"
// @Success 200 {object} Response "获取成功"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/json [get]
func (h *ExportHandler) ExportJSON(c *gin.Context) {
	txs, startStr, endStr, ok := h.exportQuery(c)
	if !ok {
		return
	}

	Success(c, gin.H{
		"start_time":   startStr,
		"end_time":     endStr,
		"count":        len(txs),
		"transactions": txs,
	})
}

// ExportExcel 导出交易为 Excel
// @Summary 导出交易 Excel
// @Description 导出指定时间范围内的交易记录，带样式和汇总行
// @Tags 交易记录
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_time query string false "开始时间 (2024-01-01)，默认一个月前"
// @Param end_time query string false "结束时间 (2024-12-31)，默认今天"
// @Success 200 {string} string "Excel 文件"
// @Failure 401 {object} Response "未授权"
// @Router /api/v1/export/excel [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	txs, startStr, endStr, ok := h.exportQuery(c)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "交易记录"
	f.SetSheetName("Sheet1", sheetName)

	// 设置表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 数据样式
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 10)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 15)
	f.SetColWidth(sheetName, "E", "E", 25)
	f.SetColWidth(sheetName, "F", "F", 30)
	f.SetColWidth(sheetName, "G", "G", 20)

	// 写入表头
	headers := []string{"ID", "类型", "金额", "类别", "商户", "描述", "交易时间"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	// 写入数据
	var totalExpense float64
	for i, tx := range txs {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), tx.ID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), tx.Kind)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), tx.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), tx.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), tx.MerchantName)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), tx.Description)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), tx.TransactionTime.Format("2006-01-02 15:04:05"))

		// 设置数据样式
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), dataStyle)
		if tx.Kind == models.KindExpense {
			totalExpense += tx.Amount
		}
	}

	// 添加汇总行
	summaryRow := len(txs) + 2
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "支出合计")
	f.MergeCell(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("B%d", summaryRow))
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", summaryRow), totalExpense)
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("共 %d 条记录", len(txs)))
	f.MergeCell(sheetName, fmt.Sprintf("D%d", summaryRow), fmt.Sprintf("G%d", summaryRow))
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("G%d", summaryRow), summaryStyle)

	// 设置响应头
	filename := fmt.Sprintf("交易记录_%s_%s.xlsx", startStr, endStr)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", filename))

	// 写入响应
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "生成 Excel 失败"})
		return
	}
}
