package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/service"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AdaptiveController struct {
	Adaptive *service.AdaptiveService
}

func NewAdaptiveController(adaptive *service.AdaptiveService) *AdaptiveController {
	return &AdaptiveController{Adaptive: adaptive}
}

func (c *AdaptiveController) StartSession(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	var req service.StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Adaptive.StartSession(ctx.Request.Context(), caller, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

type answerRequest struct {
	Answer string `json:"answer" binding:"required"`
}

func (c *AdaptiveController) AnswerQuestion(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req answerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Adaptive.AnswerQuestion(ctx.Request.Context(), caller, sessionID, questionID, req.Answer)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *AdaptiveController) GetCurrentQuestion(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	view, err := c.Adaptive.GetCurrentQuestion(ctx.Request.Context(), caller, sessionID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

func (c *AdaptiveController) GetResults(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	report, err := c.Adaptive.GetResults(caller, sessionID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

func (c *AdaptiveController) AbandonSession(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	sessionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	if err := c.Adaptive.AbandonSession(caller, sessionID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": "abandoned"})
}
