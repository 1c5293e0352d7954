package controller

import (
	"github.com/gin-gonic/gin"

	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/service"
	"github.com/AndressToscanom30/AprendizajeAdaptativo-sub001/internal/util"
)

type AssessmentController struct {
	Assessments *service.AssessmentService
}

func NewAssessmentController(assessments *service.AssessmentService) *AssessmentController {
	return &AssessmentController{Assessments: assessments}
}

func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}

	var req service.CreateAssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	assessment, err := c.Assessments.CreateAssessment(caller, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, assessment)
}

func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	page, limit := pagination(ctx)

	assessments, total, err := c.Assessments.ListAssessments(page, limit)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"assessments": assessments,
		"total":       total,
		"page":        page,
		"limit":       limit,
	})
}

func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	detail, err := c.Assessments.GetAssessment(caller, id)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

func (c *AssessmentController) AddQuestion(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	assessmentID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.Assessments.AddQuestion(caller, assessmentID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, question)
}

func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	caller, ok := identity(ctx)
	if !ok {
		return
	}
	questionID, ok := pathID(ctx, "questionId")
	if !ok {
		return
	}

	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.Assessments.UpdateQuestion(caller, questionID, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, question)
}
