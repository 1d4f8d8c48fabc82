package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"renoline/internal/engine"
	"renoline/internal/metrics"
	"renoline/internal/repo"
	"renoline/internal/validate"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	Store    repo.Store
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"validation_failed"`
	Message string         `json:"message" example:"title must be at least 3 characters"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"field\":\"title\"}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Renoline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema errors from request decoding are 400 bad_request.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Renoline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerProjects(group, cfg.Engine, cfg.Store)
	registerInterventions(group, cfg.Engine)
	registerSubInterventions(group, cfg.Engine)
	registerStages(group, cfg.Engine)
	registerContacts(group, cfg.Engine, cfg.Store)
	registerCatalog(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps engine and store errors onto the HTTP envelope. Rule
// violations are 422, missing targets 404, transition and version clashes 409.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve validate.Error
	if errors.As(err, &ve) {
		details := map[string]any{"kind": string(ve.Kind)}
		if ve.Field != "" {
			details["field"] = ve.Field
		}
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), details)
	}
	var nfe engine.NotFoundError
	if errors.As(err, &nfe) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), map[string]any{"kind": nfe.Kind, "id": nfe.ID})
	}
	var ite engine.InvalidTransitionError
	if errors.As(err, &ite) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{
			"entity": ite.Entity, "from": ite.From, "to": ite.To,
		})
	}
	if errors.Is(err, repo.ErrVersionConflict) {
		return newAPIError(http.StatusConflict, "version_conflict", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Renoline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

var mutationErrors = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusUnprocessableEntity,
	http.StatusInternalServerError,
}

func registerProjects(api huma.API, e engine.Engine, store repo.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateProject(ctx, engine.CreateProjectOptions{
			ID:                input.Body.ID,
			Title:             input.Body.Title,
			ApplicationNumber: input.Body.ApplicationNumber,
			OwnerContactID:    input.Body.OwnerContactID,
			Deadline:          input.Body.Deadline,
			Actor:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ProjectSummaryResponse `json:"body"`
	}, error) {
		items, err := store.ListProjects(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ProjectSummaryResponse, 0, len(items))
		for _, p := range items {
			p = metrics.Compute(p, metrics.Options{
				TimeSensitive: true,
				Now:           e.Now(),
				Locale:        e.Config.SortLocale(),
			})
			res = append(res, projectSummary(p))
		}
		return &struct {
			Body []ProjectSummaryResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}",
		Summary:     "Update project",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, engine.UpdateProjectOptions{
			ProjectID:         input.ProjectID,
			Title:             input.Body.Title,
			ApplicationNumber: input.Body.ApplicationNumber,
			OwnerContactID:    input.Body.OwnerContactID,
			Deadline:          input.Body.Deadline,
			Actor:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "activate-project",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/activate",
		Summary:     "Activate project (leave Quotation)",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.ActivateProject(ctx, input.ProjectID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}",
		Summary:     "Delete project",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, input.ProjectID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-profit",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/profit",
		Summary:     "Project profitability",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProfitResponse `json:"body"`
	}, error) {
		p, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProfitResponse `json:"body"`
		}{Body: profitResponse(metrics.ProjectProfit(p))}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "project-audit",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/audit",
		Summary:     "Project audit trail, newest first",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body []AuditEntryResponse `json:"body"`
	}, error) {
		p, err := e.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		entries := p.AuditLog
		if input.Limit > 0 && len(entries) > input.Limit {
			entries = entries[:input.Limit]
		}
		return &struct {
			Body []AuditEntryResponse `json:"body"`
		}{Body: auditResponse(entries)}, nil
	})
}

func registerInterventions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-intervention",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/interventions",
		Summary:       "Add intervention",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                 `path:"project_id"`
		Body      AddInterventionRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AddIntervention(ctx, engine.AddInterventionOptions{
			ProjectID:       input.ProjectID,
			MasterID:        input.Body.MasterID,
			Code:            input.Body.Code,
			ExpenseCategory: input.Body.ExpenseCategory,
			Category:        input.Body.Category,
			Subcategory:     input.Body.Subcategory,
			Quantity:        input.Body.Quantity,
			MaxUnitPrice:    input.Body.MaxUnitPrice,
			MaxAmount:       input.Body.MaxAmount,
			CostOfMaterials: input.Body.CostOfMaterials,
			CostOfLabor:     input.Body.CostOfLabor,
			Actor:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-intervention",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/interventions/{master_id}",
		Summary:     "Update intervention",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                    `path:"project_id"`
		MasterID  string                    `path:"master_id"`
		Body      UpdateInterventionRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateIntervention(ctx, engine.UpdateInterventionOptions{
			ProjectID:       input.ProjectID,
			MasterID:        input.MasterID,
			Code:            input.Body.Code,
			ExpenseCategory: input.Body.ExpenseCategory,
			Category:        input.Body.Category,
			Subcategory:     input.Body.Subcategory,
			Quantity:        input.Body.Quantity,
			CostOfMaterials: input.Body.CostOfMaterials,
			CostOfLabor:     input.Body.CostOfLabor,
			Actor:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-intervention",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/interventions/{master_id}",
		Summary:     "Delete intervention",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		MasterID  string `path:"master_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.DeleteIntervention(ctx, input.ProjectID, input.MasterID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})
}

func registerSubInterventions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-sub-intervention",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/interventions/{master_id}/sub-interventions",
		Summary:       "Add sub-intervention",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                    `path:"project_id"`
		MasterID  string                    `path:"master_id"`
		Body      AddSubInterventionRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AddSubIntervention(ctx, engine.AddSubInterventionOptions{
			ProjectID:          input.ProjectID,
			MasterID:           input.MasterID,
			SubcategoryCode:    input.Body.SubcategoryCode,
			ExpenseCategory:    input.Body.ExpenseCategory,
			Description:        input.Body.Description,
			Quantity:           input.Body.Quantity,
			QuantityUnit:       input.Body.QuantityUnit,
			Cost:               input.Body.Cost,
			CostOfMaterials:    input.Body.CostOfMaterials,
			CostOfLabor:        input.Body.CostOfLabor,
			UnitCost:           input.Body.UnitCost,
			SelectedEnergySpec: input.Body.SelectedEnergySpec,
			Actor:              actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sub-intervention",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/interventions/{master_id}/sub-interventions/{sub_id}",
		Summary:     "Update sub-intervention",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                       `path:"project_id"`
		MasterID  string                       `path:"master_id"`
		SubID     string                       `path:"sub_id"`
		Body      UpdateSubInterventionRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateSubIntervention(ctx, engine.UpdateSubInterventionOptions{
			ProjectID:           input.ProjectID,
			MasterID:            input.MasterID,
			SubID:               input.SubID,
			SubcategoryCode:     input.Body.SubcategoryCode,
			ExpenseCategory:     input.Body.ExpenseCategory,
			Description:         input.Body.Description,
			Quantity:            input.Body.Quantity,
			QuantityUnit:        input.Body.QuantityUnit,
			Cost:                input.Body.Cost,
			CostOfMaterials:     input.Body.CostOfMaterials,
			CostOfLabor:         input.Body.CostOfLabor,
			UnitCost:            input.Body.UnitCost,
			ImplementedQuantity: input.Body.ImplementedQuantity,
			SelectedEnergySpec:  input.Body.SelectedEnergySpec,
			Actor:               actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-sub-intervention",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/interventions/{master_id}/sub-interventions/{sub_id}",
		Summary:     "Delete sub-intervention",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		MasterID  string `path:"master_id"`
		SubID     string `path:"sub_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.DeleteSubIntervention(ctx, input.ProjectID, input.MasterID, input.SubID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-sub-intervention",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/interventions/{master_id}/sub-interventions/move",
		Summary:     "Reorder sub-intervention",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string      `path:"project_id"`
		MasterID  string      `path:"master_id"`
		Body      MoveRequest `json:"body"`
	}) (*struct {
		Body MoveResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, moved, err := e.MoveSubIntervention(ctx, engine.MoveSubInterventionOptions{
			ProjectID: input.ProjectID,
			MasterID:  input.MasterID,
			Index:     input.Body.Index,
			Direction: input.Body.Direction,
			Actor:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoveResponse `json:"body"`
		}{Body: MoveResponse{Moved: moved, Project: projectResponse(p)}}, nil
	})
}

func registerStages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-stage",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/interventions/{master_id}/stages",
		Summary:       "Add stage",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string          `path:"project_id"`
		MasterID  string          `path:"master_id"`
		Body      AddStageRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.AddStage(ctx, engine.AddStageOptions{
			ProjectID:           input.ProjectID,
			MasterID:            input.MasterID,
			Title:               input.Body.Title,
			Deadline:            input.Body.Deadline,
			Notes:               input.Body.Notes,
			AssigneeContactID:   input.Body.AssigneeContactID,
			SupervisorContactID: input.Body.SupervisorContactID,
			Actor:               actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/interventions/{master_id}/stages/{stage_id}",
		Summary:     "Update stage",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string             `path:"project_id"`
		MasterID  string             `path:"master_id"`
		StageID   string             `path:"stage_id"`
		Body      UpdateStageRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateStage(ctx, engine.UpdateStageOptions{
			ProjectID:           input.ProjectID,
			MasterID:            input.MasterID,
			StageID:             input.StageID,
			Title:               input.Body.Title,
			Deadline:            input.Body.Deadline,
			Notes:               input.Body.Notes,
			AssigneeContactID:   input.Body.AssigneeContactID,
			SupervisorContactID: input.Body.SupervisorContactID,
			AddFiles:            stageFiles(input.Body.AddFiles),
			RemoveFileName:      input.Body.RemoveFileName,
			Actor:               actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-stage",
		Method:      http.MethodPatch,
		Path:        "/projects/{project_id}/interventions/{master_id}/stages/{stage_id}/status",
		Summary:     "Change stage status",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string                 `path:"project_id"`
		MasterID  string                 `path:"master_id"`
		StageID   string                 `path:"stage_id"`
		Body      TransitionStageRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.TransitionStage(ctx, input.ProjectID, input.MasterID, input.StageID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-stage",
		Method:      http.MethodDelete,
		Path:        "/projects/{project_id}/interventions/{master_id}/stages/{stage_id}",
		Summary:     "Delete stage",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		MasterID  string `path:"master_id"`
		StageID   string `path:"stage_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.DeleteStage(ctx, input.ProjectID, input.MasterID, input.StageID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-stage",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/interventions/{master_id}/stages/move",
		Summary:     "Reorder stage within its status lane",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ProjectID string      `path:"project_id"`
		MasterID  string      `path:"master_id"`
		Body      MoveRequest `json:"body"`
	}) (*struct {
		Body MoveResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, moved, err := e.MoveStage(ctx, engine.MoveStageOptions{
			ProjectID: input.ProjectID,
			MasterID:  input.MasterID,
			Index:     input.Body.Index,
			Direction: input.Body.Direction,
			Actor:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MoveResponse `json:"body"`
		}{Body: MoveResponse{Moved: moved, Project: projectResponse(p)}}, nil
	})
}

func registerContacts(api huma.API, e engine.Engine, store repo.Store) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-contact",
		Method:        http.MethodPost,
		Path:          "/contacts",
		Summary:       "Create contact",
		DefaultStatus: http.StatusCreated,
		Errors:        mutationErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateContactRequest `json:"body"`
	}) (*struct {
		Body ContactResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateContact(ctx, engine.CreateContactOptions{
			ID:    input.Body.ID,
			Name:  input.Body.Name,
			Role:  input.Body.Role,
			Email: input.Body.Email,
			Phone: input.Body.Phone,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContactResponse `json:"body"`
		}{Body: contactResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-contacts",
		Method:      http.MethodGet,
		Path:        "/contacts",
		Summary:     "List contacts",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []ContactResponse `json:"body"`
	}, error) {
		items, err := store.ListContacts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ContactResponse, 0, len(items))
		for _, c := range items {
			res = append(res, contactResponse(c))
		}
		return &struct {
			Body []ContactResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-contact",
		Method:      http.MethodGet,
		Path:        "/contacts/{contact_id}",
		Summary:     "Get contact",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ContactID string `path:"contact_id"`
	}) (*struct {
		Body ContactResponse `json:"body"`
	}, error) {
		c, err := store.GetContact(ctx, input.ContactID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ContactResponse `json:"body"`
		}{Body: contactResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-contact",
		Method:      http.MethodDelete,
		Path:        "/contacts/{contact_id}",
		Summary:     "Delete contact",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ContactID string `path:"contact_id"`
	}) (*struct{}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := store.DeleteContact(ctx, input.ContactID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCatalog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "catalog",
		Method:      http.MethodGet,
		Path:        "/catalog",
		Summary:     "Program category catalog",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []CategoryResponse `json:"body"`
	}, error) {
		res := make([]CategoryResponse, 0, len(e.Config.Categories))
		for code, cat := range e.Config.Categories {
			res = append(res, CategoryResponse{
				Code:         code,
				Description:  cat.Description,
				Unit:         cat.Unit,
				MaxUnitPrice: cat.MaxUnitPrice,
				MaxAmount:    cat.MaxAmount,
			})
		}
		sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
		return &struct {
			Body []CategoryResponse `json:"body"`
		}{Body: res}, nil
	})
}
