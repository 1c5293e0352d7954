package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/service"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AnalysisController struct {
	Analysis *service.AnalysisService
}

func NewAnalysisController(analysis *service.AnalysisService) *AnalysisController {
	return &AnalysisController{Analysis: analysis}
}

func (c *AnalysisController) RequestAnalysis(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	job, err := c.Analysis.RequestAnalysis(ctx.Request.Context(), caller, attemptID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

func (c *AnalysisController) GetAnalysis(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	job, err := c.Analysis.GetAnalysis(caller, ctx.Param("analysisId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, job)
}

func (c *AnalysisController) GetAnalysisByAttempt(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	job, err := c.Analysis.GetAnalysisByAttempt(caller, attemptID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, job)
}
