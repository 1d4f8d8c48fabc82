package server

import (
	"renoline/internal/domain"
	"renoline/internal/metrics"
)

// Request payloads

type CreateProjectRequest struct {
	ID                string `json:"id,omitempty"`
	Title             string `json:"title"`
	ApplicationNumber string `json:"application_number,omitempty"`
	OwnerContactID    string `json:"owner_contact_id,omitempty"`
	Deadline          string `json:"deadline" format:"date-time"`
}

type UpdateProjectRequest struct {
	Title             *string `json:"title,omitempty"`
	ApplicationNumber *string `json:"application_number,omitempty"`
	OwnerContactID    *string `json:"owner_contact_id,omitempty"`
	Deadline          *string `json:"deadline,omitempty" format:"date-time"`
}

type AddInterventionRequest struct {
	MasterID        string   `json:"master_id,omitempty"`
	Code            string   `json:"code,omitempty"`
	ExpenseCategory string   `json:"expense_category,omitempty"`
	Category        string   `json:"category"`
	Subcategory     string   `json:"subcategory,omitempty"`
	Quantity        float64  `json:"quantity"`
	MaxUnitPrice    float64  `json:"max_unit_price,omitempty"`
	MaxAmount       float64  `json:"max_amount,omitempty"`
	CostOfMaterials *float64 `json:"cost_of_materials,omitempty"`
	CostOfLabor     *float64 `json:"cost_of_labor,omitempty"`
}

type UpdateInterventionRequest struct {
	Code            *string  `json:"code,omitempty"`
	ExpenseCategory *string  `json:"expense_category,omitempty"`
	Category        *string  `json:"category,omitempty"`
	Subcategory     *string  `json:"subcategory,omitempty"`
	Quantity        *float64 `json:"quantity,omitempty"`
	CostOfMaterials *float64 `json:"cost_of_materials,omitempty"`
	CostOfLabor     *float64 `json:"cost_of_labor,omitempty"`
}

type AddSubInterventionRequest struct {
	SubcategoryCode    string   `json:"subcategory_code,omitempty"`
	ExpenseCategory    string   `json:"expense_category,omitempty"`
	Description        string   `json:"description"`
	Quantity           *float64 `json:"quantity,omitempty"`
	QuantityUnit       string   `json:"quantity_unit,omitempty"`
	Cost               float64  `json:"cost"`
	CostOfMaterials    *float64 `json:"cost_of_materials,omitempty"`
	CostOfLabor        *float64 `json:"cost_of_labor,omitempty"`
	UnitCost           *float64 `json:"unit_cost,omitempty"`
	SelectedEnergySpec string   `json:"selected_energy_spec,omitempty"`
}

type UpdateSubInterventionRequest struct {
	SubcategoryCode     *string  `json:"subcategory_code,omitempty"`
	ExpenseCategory     *string  `json:"expense_category,omitempty"`
	Description         *string  `json:"description,omitempty"`
	Quantity            *float64 `json:"quantity,omitempty"`
	QuantityUnit        *string  `json:"quantity_unit,omitempty"`
	Cost                *float64 `json:"cost,omitempty"`
	CostOfMaterials     *float64 `json:"cost_of_materials,omitempty"`
	CostOfLabor         *float64 `json:"cost_of_labor,omitempty"`
	UnitCost            *float64 `json:"unit_cost,omitempty"`
	ImplementedQuantity *float64 `json:"implemented_quantity,omitempty"`
	SelectedEnergySpec  *string  `json:"selected_energy_spec,omitempty"`
}

type MoveRequest struct {
	Index     int    `json:"index"`
	Direction string `json:"direction" enum:"up,down"`
}

type AddStageRequest struct {
	Title               string `json:"title"`
	Deadline            string `json:"deadline,omitempty" format:"date-time"`
	Notes               string `json:"notes,omitempty"`
	AssigneeContactID   string `json:"assignee_contact_id,omitempty"`
	SupervisorContactID string `json:"supervisor_contact_id,omitempty"`
}

type UpdateStageRequest struct {
	Title               *string           `json:"title,omitempty"`
	Deadline            *string           `json:"deadline,omitempty" format:"date-time"`
	Notes               *string           `json:"notes,omitempty"`
	AssigneeContactID   *string           `json:"assignee_contact_id,omitempty"`
	SupervisorContactID *string           `json:"supervisor_contact_id,omitempty"`
	AddFiles            []StageFileEntry `json:"add_files,omitempty"`
	RemoveFileName      string           `json:"remove_file_name,omitempty"`
}

type TransitionStageRequest struct {
	Status string `json:"status" enum:"pending,in progress,completed,failed"`
}

type CreateContactRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Response payloads

type StageFileEntry struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type StageResponse struct {
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	Status              string           `json:"status" enum:"pending,in progress,completed,failed"`
	Deadline            string           `json:"deadline,omitempty" format:"date-time"`
	LastUpdated         string           `json:"last_updated,omitempty" format:"date-time"`
	Notes               string           `json:"notes,omitempty"`
	AssigneeContactID   string           `json:"assignee_contact_id,omitempty"`
	SupervisorContactID string           `json:"supervisor_contact_id,omitempty"`
	Files               []StageFileEntry `json:"files,omitempty"`
}

type SubInterventionResponse struct {
	ID                  string   `json:"id"`
	SubcategoryCode     string   `json:"subcategory_code,omitempty"`
	ExpenseCategory     string   `json:"expense_category,omitempty"`
	Description         string   `json:"description"`
	Quantity            *float64 `json:"quantity,omitempty"`
	QuantityUnit        string   `json:"quantity_unit,omitempty"`
	Cost                float64  `json:"cost"`
	CostOfMaterials     *float64 `json:"cost_of_materials,omitempty"`
	CostOfLabor         *float64 `json:"cost_of_labor,omitempty"`
	UnitCost            *float64 `json:"unit_cost,omitempty"`
	ImplementedQuantity *float64 `json:"implemented_quantity,omitempty"`
	SelectedEnergySpec  string   `json:"selected_energy_spec,omitempty"`
	DisplayCode         string   `json:"display_code,omitempty"`
}

type InterventionResponse struct {
	MasterID         string                    `json:"master_id"`
	Code             string                    `json:"code,omitempty"`
	ExpenseCategory  string                    `json:"expense_category,omitempty"`
	Category         string                    `json:"category"`
	Subcategory      string                    `json:"subcategory,omitempty"`
	Quantity         float64                   `json:"quantity"`
	TotalCost        float64                   `json:"total_cost"`
	CostOfMaterials  *float64                  `json:"cost_of_materials,omitempty"`
	CostOfLabor      *float64                  `json:"cost_of_labor,omitempty"`
	SubInterventions []SubInterventionResponse `json:"sub_interventions"`
	Stages           []StageResponse           `json:"stages"`
}

type AuditEntryResponse struct {
	ID        string `json:"id"`
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp" format:"date-time"`
	Details   string `json:"details,omitempty"`
}

type ProjectResponse struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	ApplicationNumber string                 `json:"application_number,omitempty"`
	OwnerContactID    string                 `json:"owner_contact_id,omitempty"`
	Deadline          string                 `json:"deadline,omitempty" format:"date-time"`
	Status            string                 `json:"status" enum:"Quotation,On Track,Delayed,Completed"`
	Interventions     []InterventionResponse `json:"interventions"`
	Budget            float64                `json:"budget"`
	Progress          int                    `json:"progress"`
	Alerts            int                    `json:"alerts"`
	CreatedAt         string                 `json:"created_at,omitempty" format:"date-time"`
	Version           int64                  `json:"version"`
}

type ProjectSummaryResponse struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Status   string  `json:"status"`
	Deadline string  `json:"deadline,omitempty" format:"date-time"`
	Budget   float64 `json:"budget"`
	Progress int     `json:"progress"`
	Alerts   int     `json:"alerts"`
}

type ContactResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty" format:"date-time"`
}

type MoveResponse struct {
	Moved   bool            `json:"moved"`
	Project ProjectResponse `json:"project"`
}

type ProfitResponse struct {
	Cost         float64 `json:"cost"`
	InternalCost float64 `json:"internal_cost"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
}

type CategoryResponse struct {
	Code         string  `json:"code"`
	Description  string  `json:"description,omitempty"`
	Unit         string  `json:"unit,omitempty"`
	MaxUnitPrice float64 `json:"max_unit_price"`
	MaxAmount    float64 `json:"max_amount"`
}

// Converters

func stageFileEntries(files []domain.StageFile) []StageFileEntry {
	out := make([]StageFileEntry, 0, len(files))
	for _, f := range files {
		out = append(out, StageFileEntry{Name: f.Name, URL: f.URL})
	}
	return out
}

func stageFiles(entries []StageFileEntry) []domain.StageFile {
	out := make([]domain.StageFile, 0, len(entries))
	for _, f := range entries {
		out = append(out, domain.StageFile{Name: f.Name, URL: f.URL})
	}
	return out
}

func stageResponse(st domain.Stage) StageResponse {
	return StageResponse{
		ID:                  st.ID,
		Title:               st.Title,
		Status:              st.Status,
		Deadline:            st.Deadline,
		LastUpdated:         st.LastUpdated,
		Notes:               st.Notes,
		AssigneeContactID:   st.AssigneeContactID,
		SupervisorContactID: st.SupervisorContactID,
		Files:               stageFileEntries(st.Files),
	}
}

func subResponse(sub domain.SubIntervention) SubInterventionResponse {
	return SubInterventionResponse{
		ID:                  sub.ID,
		SubcategoryCode:     sub.SubcategoryCode,
		ExpenseCategory:     sub.ExpenseCategory,
		Description:         sub.Description,
		Quantity:            sub.Quantity,
		QuantityUnit:        sub.QuantityUnit,
		Cost:                sub.Cost,
		CostOfMaterials:     sub.CostOfMaterials,
		CostOfLabor:         sub.CostOfLabor,
		UnitCost:            sub.UnitCost,
		ImplementedQuantity: sub.ImplementedQuantity,
		SelectedEnergySpec:  sub.SelectedEnergySpec,
		DisplayCode:         sub.DisplayCode,
	}
}

func interventionResponse(iv domain.Intervention) InterventionResponse {
	subs := make([]SubInterventionResponse, 0, len(iv.SubInterventions))
	for _, sub := range iv.SubInterventions {
		subs = append(subs, subResponse(sub))
	}
	stages := make([]StageResponse, 0, len(iv.Stages))
	for _, st := range iv.Stages {
		stages = append(stages, stageResponse(st))
	}
	return InterventionResponse{
		MasterID:         iv.MasterID,
		Code:             iv.Code,
		ExpenseCategory:  iv.ExpenseCategory,
		Category:         iv.Category,
		Subcategory:      iv.Subcategory,
		Quantity:         iv.Quantity,
		TotalCost:        iv.TotalCost,
		CostOfMaterials:  iv.CostOfMaterials,
		CostOfLabor:      iv.CostOfLabor,
		SubInterventions: subs,
		Stages:           stages,
	}
}

func projectResponse(p domain.Project) ProjectResponse {
	ivs := make([]InterventionResponse, 0, len(p.Interventions))
	for _, iv := range p.Interventions {
		ivs = append(ivs, interventionResponse(iv))
	}
	return ProjectResponse{
		ID:                p.ID,
		Title:             p.Title,
		ApplicationNumber: p.ApplicationNumber,
		OwnerContactID:    p.OwnerContactID,
		Deadline:          p.Deadline,
		Status:            p.Status,
		Interventions:     ivs,
		Budget:            p.Budget,
		Progress:          p.Progress,
		Alerts:            p.Alerts,
		CreatedAt:         p.CreatedAt,
		Version:           p.Version,
	}
}

func projectSummary(p domain.Project) ProjectSummaryResponse {
	return ProjectSummaryResponse{
		ID:       p.ID,
		Title:    p.Title,
		Status:   p.Status,
		Deadline: p.Deadline,
		Budget:   p.Budget,
		Progress: p.Progress,
		Alerts:   p.Alerts,
	}
}

func contactResponse(c domain.Contact) ContactResponse {
	return ContactResponse{
		ID:        c.ID,
		Name:      c.Name,
		Role:      c.Role,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt,
	}
}

func profitResponse(s metrics.ProfitSummary) ProfitResponse {
	return ProfitResponse{
		Cost:         s.Cost,
		InternalCost: s.InternalCost,
		Profit:       s.Profit,
		Margin:       s.Margin,
	}
}

func auditResponse(entries []domain.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Action:    e.Action,
			Timestamp: e.Timestamp,
			Details:   e.Details,
		})
	}
	return out
}
