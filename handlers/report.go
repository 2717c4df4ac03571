package handlers

import (
	"net/http"

	"transaction-svc/middleware"
	"transaction-svc/report"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ReportHandler struct {
	view   *report.View
	logger *zap.Logger
}

func NewReportHandler(view *report.View, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{view: view, logger: logger}
}

// SalesReport returns the live per-product aggregation for the admin's
// own store.
func (h *ReportHandler) SalesReport(c *gin.Context) {
	ctx, span := otel.Tracer("transaction-service").Start(c.Request.Context(), "SalesReport")
	defer span.End()

	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	span.SetAttributes(attribute.Int("store.id", p.StoreID))

	rows, err := h.view.StoreSales(ctx, p.StoreID)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to build sales report", zap.Int("store_id", p.StoreID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"store_id":     p.StoreID,
		"sales_report": rows,
	})
}
