package model

import (
	"encoding/json"
	"errors"
)

// Question types. Values match the assessment content stored by the
// authoring frontend and must not be renamed.
const (
	TypeOpcionMultiple    = "opcion_multiple"
	TypeVerdaderoFalso    = "verdadero_falso"
	TypeSeleccionMultiple = "seleccion_multiple"
	TypeRelacionPar       = "relacion_par"
	TypeRespuestaCorta    = "respuesta_corta"
	TypeCompletarBlanco   = "completar_blanco"
	TypeRespuestaLarga    = "respuesta_larga"
	TypeCodigo            = "codigo"
)

// Difficulty tiers shared by the question bank and the adaptive controller.
const (
	LevelBasic        = "basic"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type Assessment struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	TimeLimit   int    `gorm:"default:0" json:"timeLimit"` // Minutes
}

func (Assessment) TableName() string {
	return "assessments"
}

type Question struct {
	BaseModel
	AssessmentID uint             `gorm:"index;type:bigint unsigned" json:"assessmentId"`
	Type         string           `gorm:"size:50;not null" json:"type"`
	Content      string           `gorm:"type:text;not null" json:"content"`
	Category     string           `gorm:"size:100" json:"category"`
	Difficulty   string           `gorm:"size:20;default:'basic'" json:"difficulty"`
	Points       int              `gorm:"default:1" json:"points"`
	Order        int              `gorm:"default:0" json:"order"`
	Explanation  string           `gorm:"type:text" json:"explanation"`
	Options      []QuestionOption `gorm:"foreignKey:QuestionID" json:"options,omitempty"`
	Metadata     json.RawMessage  `gorm:"type:json" json:"metadata,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

type QuestionOption struct {
	BaseModel
	QuestionID uint   `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// Typed metadata variants, keyed by Question.Type. The raw JSON column is
// decoded at the boundary instead of being passed around as a map.

type CodeMetadata struct {
	InitialCode    string   `json:"initialCode"`
	Solution       string   `json:"solution"`
	ExpectedOutput string   `json:"expectedOutput"`
	Hints          []string `json:"hints,omitempty"`
	Language       string   `json:"language"`
}

type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type PairMetadata struct {
	Pairs []MatchPair `json:"pairs"`
}

type TextKeyMetadata struct {
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
}

var ErrNoMetadata = errors.New("question has no metadata")

func (q *Question) CodeMetadata() (*CodeMetadata, error) {
	if len(q.Metadata) == 0 {
		return nil, ErrNoMetadata
	}
	var m CodeMetadata
	if err := json.Unmarshal(q.Metadata, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Question) PairMetadata() (*PairMetadata, error) {
	if len(q.Metadata) == 0 {
		return nil, ErrNoMetadata
	}
	var m PairMetadata
	if err := json.Unmarshal(q.Metadata, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (q *Question) TextKeyMetadata() (*TextKeyMetadata, error) {
	if len(q.Metadata) == 0 {
		return nil, ErrNoMetadata
	}
	var m TextKeyMetadata
	if err := json.Unmarshal(q.Metadata, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CorrectOptionIDs returns the ids of options flagged correct.
func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	return ids
}
