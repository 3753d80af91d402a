package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solatis/querykeeper/internal/rules"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

// OperatorView describes one operator as the editor renders it.
type OperatorView struct {
	Name            string         `json:"name"`
	ValueEditorType string         `json:"valueEditorType"`
	Values          []types.Option `json:"values,omitempty"`
}

// FieldView is a registry field with its operators.
type FieldView struct {
	types.FieldConfig
	Operators []OperatorView `json:"operators"`
}

// ValidationResult is the body of POST /api/v1/validate and the gRPC Validate reply.
type ValidationResult struct {
	rules.Report
	Annotated *types.RuleGroup `json:"annotated"`
}

// Fields returns the registry as the editor consumes it.
func (s *Service) Fields() []FieldView {
	fields := s.registry.Fields()
	views := make([]FieldView, 0, len(fields))
	for _, f := range fields {
		ops := s.registry.OperatorsFor(f.Name)
		view := FieldView{FieldConfig: f, Operators: make([]OperatorView, 0, len(ops))}
		for _, op := range ops {
			view.Operators = append(view.Operators, OperatorView{
				Name:            op,
				ValueEditorType: s.registry.ValueEditorType(f.Name, op),
				Values:          s.registry.ValueOptions(f.Name, op),
			})
		}
		views = append(views, view)
	}
	return views
}

func (s *Service) listFields(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"fields": s.Fields()})
}

// Validate reports completeness and the annotated form of tree.
func (s *Service) Validate(tree *types.RuleGroup) ValidationResult {
	return ValidationResult{
		Report:    s.engine.Validate(tree),
		Annotated: s.engine.Annotate(tree),
	}
}

func (s *Service) validateTree(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		respondWithBodyError(c, err)
		return
	}
	tree, err := types.DecodeTree(body)
	if err != nil {
		respondWithTreeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Validate(tree))
}

func (s *Service) healthz(c *gin.Context) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
