package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bakeledger/prodcost_backend/config"
	"github.com/bakeledger/prodcost_backend/models"
	"github.com/bakeledger/prodcost_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// writeDomainError maps core failures onto HTTP statuses. Stock shortfalls
// are expected business rejections (409); broken recipe data is 422.
func writeDomainError(c *gin.Context, err error) {
	var insufficient *models.InsufficientStockError
	if errors.As(err, &insufficient) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       insufficient.Error(),
			"material_id": insufficient.MaterialId,
			"node_id":     insufficient.NodeId,
			"shortfall":   insufficient.Shortfall,
		})
		return
	}
	var circular *models.CircularReferenceError
	if errors.As(err, &circular) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": circular.Error(), "cycle": circular.Path})
		return
	}
	var missingPrice *models.MissingPriceError
	if errors.As(err, &missingPrice) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": missingPrice.Error(), "material_id": missingPrice.MaterialId})
		return
	}
	var unknownOffer *models.UnknownSupplierOfferError
	if errors.As(err, &unknownOffer) {
		c.JSON(http.StatusBadRequest, gin.H{"error": unknownOffer.Error()})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	config.LogError(config.GetLogger(), "handlers.go", "writeDomainError", c.FullPath(), nil, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func loginHandler(c *gin.Context) {
	var input struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	token, err := models.AuthenticateUser(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func listMaterialsHandler(c *gin.Context) {
	materials, err := models.GetMaterials(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, materials)
}

func createMaterialHandler(c *gin.Context) {
	var input models.NewMaterial
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	material, err := models.CreateMaterial(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, material)
}

func createSupplierHandler(c *gin.Context) {
	var input models.NewSupplier
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	supplier, err := models.CreateSupplier(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func setSupplierOfferHandler(c *gin.Context) {
	var input models.NewSupplierOffer
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	offer, err := models.SetSupplierOffer(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// materialStockHandler returns total stock, or one supplier's bucket when
// supplier_id is given. Unlimited materials report "unlimited".
func materialStockHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	if supplierParam := c.Query("supplier_id"); supplierParam != "" {
		supplierId, err := strconv.Atoi(supplierParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier_id"})
			return
		}
		stock, err := models.GetCurrentStock(c.Request.Context(), id, &supplierId)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"material_id": id, "supplier_id": supplierId, "stock": stock})
		return
	}

	level, err := models.GetTotalStock(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"material_id": id, "stock": level})
}

func consumptionPlanHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	qty, err := decimal.NewFromString(c.Query("qty"))
	if err != nil || qty.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "qty must be a positive number"})
		return
	}

	var plan []models.Deduction
	if c.Query("strategy") == "cheapest" {
		plan, err = models.CheapestFirstPlan(c.Request.Context(), id, qty)
	} else {
		plan, err = models.ResolveDeductions(c.Request.Context(), id, qty)
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func stockEventsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	events, err := models.GetStockEvents(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func listNodesHandler(c *gin.Context) {
	nodes, err := models.GetNodes(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func createNodeHandler(c *gin.Context) {
	var input models.NewNode
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	node, err := models.CreateNode(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

func getNodeHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	node, err := models.GetNode(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

func nodeCostHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	cost, err := models.GetUnitCost(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node_id": id, "unit_cost": cost})
}

func nodeCostBreakdownHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	breakdown, err := models.GetUnitCostBreakdown(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

func nodeStockHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	stock, err := models.GetNodeStock(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node_id": id, "stock": stock})
}

func stockAdjustmentHandler(c *gin.Context) {
	var input models.NewStockAdjustment
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	event, err := models.ApplyStockAdjustment(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func stockImportHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	auditDate := time.Now()
	if dateParam := c.PostForm("audit_date"); dateParam != "" {
		auditDate, err = time.Parse("2006-01-02", dateParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "audit_date must be YYYY-MM-DD"})
			return
		}
	}

	opened, err := file.Open()
	if err != nil {
		writeDomainError(c, err)
		return
	}
	defer opened.Close()

	result, err := models.ImportStockWorkbook(c.Request.Context(), opened, auditDate)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func listProductionsHandler(c *gin.Context) {
	records, err := models.GetProductionRecords(c.Request.Context())
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func postProductionHandler(c *gin.Context) {
	var input models.NewProduction
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.FormatValidationErrors(err)})
		return
	}
	record, err := models.PostProduction(c.Request.Context(), &input)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}
