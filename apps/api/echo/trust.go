package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/trust"
	"github.com/trezcool/paes/core/user"
)

// TrustService is the part of the validation engine the API exposes.
type TrustService interface {
	ValidateAndRecord(ctx context.Context, p user.Principal, sub trust.Submission) (trust.Result, error)
	GetUserValidationHistory(ctx context.Context, p user.Principal, userID string, limit int) ([]trust.ValidatedAction, error)
	GetValidationStats(ctx context.Context, p user.Principal, hours int) (trust.Stats, error)
	FlagUserForReview(ctx context.Context, p user.Principal, userID string, nf trust.NewUserFlag) (trust.UserFlag, error)
	ListUserFlags(ctx context.Context, p user.Principal, userID string) ([]trust.UserFlag, error)
}

var _ TrustService = (*trust.Service)(nil)

type trustApi struct {
	svc TrustService
}

func registerTrustAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc TrustService) {
	api := trustApi{svc: svc}

	ag := g.Group("", jwt, principalMiddleware())
	ag.POST("/actions", api.validateAction)
	ag.GET("/validations/stats", api.stats, adminMiddleware())

	ug := ag.Group("/users/:id")
	ug.GET("/validations", api.history)
	ug.GET("/flags", api.flags, adminMiddleware())
	ug.POST("/flags", api.flag, adminMiddleware())
}

// Handlers

func (api *trustApi) validateAction(ctx echo.Context) error {
	var data trust.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}

	res, err := api.svc.ValidateAndRecord(ctx.Request().Context(), contextPrincipal(ctx), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *trustApi) history(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}

	actions, err := api.svc.GetUserValidationHistory(ctx.Request().Context(), contextPrincipal(ctx), ctx.Param("id"), limit)
	if err != nil {
		return errors.Wrap(err, "getting validation history")
	}
	if actions == nil {
		actions = []trust.ValidatedAction{}
	}
	return ctx.JSON(http.StatusOK, actions)
}

func (api *trustApi) stats(ctx echo.Context) error {
	hours, err := intQueryParam(ctx, "hours")
	if err != nil {
		return err
	}

	stats, err := api.svc.GetValidationStats(ctx.Request().Context(), contextPrincipal(ctx), hours)
	if err != nil {
		return errors.Wrap(err, "getting validation stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *trustApi) flag(ctx echo.Context) error {
	var data trust.NewUserFlag
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUserFlag")
	}

	flag, err := api.svc.FlagUserForReview(ctx.Request().Context(), contextPrincipal(ctx), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "flagging user")
	}
	return ctx.JSON(http.StatusCreated, flag)
}

func (api *trustApi) flags(ctx echo.Context) error {
	flags, err := api.svc.ListUserFlags(ctx.Request().Context(), contextPrincipal(ctx), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing user flags")
	}
	if flags == nil {
		flags = []trust.UserFlag{}
	}
	return ctx.JSON(http.StatusOK, flags)
}

// intQueryParam parses an optional positive int query param. A missing param is 0.
func intQueryParam(ctx echo.Context, name string) (int, error) {
	s := ctx.QueryParam(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}
