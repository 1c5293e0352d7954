package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/service"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AttemptController struct {
	Attempts *service.AttemptService
}

func NewAttemptController(attempts *service.AttemptService) *AttemptController {
	return &AttemptController{Attempts: attempts}
}

func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	assessmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.Attempts.StartAttempt(caller, assessmentID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, attempt)
}

type submitRequest struct {
	Answers []service.AnswerSubmission `json:"answers" binding:"required"`
}

func (c *AttemptController) SubmitAnswers(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req submitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Attempts.SubmitAnswers(caller, attemptID, req.Answers)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *AttemptController) GetResult(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := c.Attempts.GetAttemptResult(caller, attemptID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *AttemptController) GradeAttempt(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Attempts.GradeAttempt(caller, attemptID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	assessmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	page, limit := pagination(ctx)

	attempts, total, err := c.Attempts.ListAttempts(caller, assessmentID, page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"attempts": attempts,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}
