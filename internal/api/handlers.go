package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inspection-backend/internal/ml"
	"inspection-backend/internal/models"
	"inspection-backend/internal/services"
)

// Handler handles API requests
type Handler struct {
	inspection *services.InspectionService
	simulation *services.SimulationService
}

// NewHandler creates a new API handler
func NewHandler(inspection *services.InspectionService, simulation *services.SimulationService) *Handler {
	return &Handler{
		inspection: inspection,
		simulation: simulation,
	}
}

// RegisterRoutes registers API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/model/train", h.handleTrain)
		v1.POST("/model/predict", h.handlePredict)
		v1.GET("/model/info", h.handleModelInfo)
		v1.DELETE("/model", h.handleDeleteModel)

		v1.POST("/simulation/start", h.handleSimulation)
		v1.GET("/simulation/stats", h.handleSimulationStats)
	}
}

// TrainRequest carries the training and held-out evaluation datasets
type TrainRequest struct {
	TrainStart   string                 `json:"trainStart,omitempty"`
	TrainEnd     string                 `json:"trainEnd,omitempty"`
	TestStart    string                 `json:"testStart,omitempty"`
	TestEnd      string                 `json:"testEnd,omitempty"`
	TrainingData []models.LabeledSample `json:"trainingData"`
	TestingData  []models.LabeledSample `json:"testingData"`
}

// SimulationRequest carries the ordered samples to replay
type SimulationRequest struct {
	Data []models.SimulationSample `json:"data"`
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTrain fits and activates a new model
func (h *Handler) handleTrain(c *gin.Context) {
	var req TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.inspection.Train(c.Request.Context(), req.TrainingData, req.TestingData)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// handlePredict classifies a single feature mapping
func (h *Handler) handlePredict(c *gin.Context) {
	var raw models.RawFeatures
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.inspection.Predict(c.Request.Context(), raw)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) handleModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.inspection.ModelInfo())
}

func (h *Handler) handleDeleteModel(c *gin.Context) {
	if err := h.inspection.DeleteModel(); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Model deleted successfully"})
}

// handleSimulation replays samples and returns the ordered records
func (h *Handler) handleSimulation(c *gin.Context) {
	var req SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, _, err := h.simulation.Run(c.Request.Context(), req.Data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) handleSimulationStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.simulation.Stats())
}

// writeError maps an error kind onto an HTTP status
func writeError(c *gin.Context, err error) {
	status := statusFor(ml.KindOf(err))
	if status == http.StatusInternalServerError {
		log.Printf("API: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(kind ml.Kind) int {
	switch kind {
	case ml.KindValidation:
		return http.StatusBadRequest
	case ml.KindUntrainedModel:
		return http.StatusConflict
	case ml.KindNotFound:
		return http.StatusNotFound
	case ml.KindTraining:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
