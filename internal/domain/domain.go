package domain

// Project statuses. Quotation is the entry status and sticks until the
// project is explicitly activated; Completed sticks once all stages are done.
const (
	StatusQuotation = "Quotation"
	StatusOnTrack   = "On Track"
	StatusDelayed   = "Delayed"
	StatusCompleted = "Completed"
)

// Stage statuses.
const (
	StagePending    = "pending"
	StageInProgress = "in progress"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

type Project struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	ApplicationNumber string         `json:"application_number,omitempty"`
	OwnerContactID    string         `json:"owner_contact_id,omitempty"`
	Deadline          string         `json:"deadline,omitempty" format:"date-time"`
	Status            string         `json:"status" enum:"Quotation,On Track,Delayed,Completed"`
	Interventions     []Intervention `json:"interventions"`
	Budget            float64        `json:"budget"`
	Progress          int            `json:"progress"`
	Alerts            int            `json:"alerts"`
	AuditLog          []AuditEntry   `json:"audit_log"`
	CreatedAt         string         `json:"created_at" format:"date-time"`
	Version           int64          `json:"-"`
}

type Intervention struct {
	MasterID         string            `json:"master_id"`
	Code             string            `json:"code,omitempty"`
	ExpenseCategory  string            `json:"expense_category,omitempty"`
	Category         string            `json:"intervention_category"`
	Subcategory      string            `json:"intervention_subcategory,omitempty"`
	Quantity         float64           `json:"quantity"`
	TotalCost        float64           `json:"total_cost"`
	CostOfMaterials  *float64          `json:"cost_of_materials,omitempty"`
	CostOfLabor      *float64          `json:"cost_of_labor,omitempty"`
	SubInterventions []SubIntervention `json:"sub_interventions"`
	Stages           []Stage           `json:"stages"`
}

// DisplayName is the name interventions are listed and sorted under.
func (iv Intervention) DisplayName() string {
	if iv.Subcategory != "" {
		return iv.Subcategory
	}
	return iv.Category
}

type SubIntervention struct {
	ID                  string   `json:"id"`
	SubcategoryCode     string   `json:"subcategory_code"`
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

type Stage struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Status              string      `json:"status" enum:"pending,in progress,completed,failed"`
	Deadline            string      `json:"deadline,omitempty" format:"date-time"`
	LastUpdated         string      `json:"last_updated" format:"date-time"`
	Notes               string      `json:"notes,omitempty"`
	AssigneeContactID   string      `json:"assignee_contact_id,omitempty"`
	SupervisorContactID string      `json:"supervisor_contact_id,omitempty"`
	Files               []StageFile `json:"files,omitempty"`
}

type StageFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AuditEntry is one append-only change record; the project log keeps
// entries newest first.
type AuditEntry struct {
	ID        string `json:"id"`
	Actor     string `json:"actor"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp" format:"date-time"`
	Details   string `json:"details"`
}

// Contact is display data behind the weak owner/assignee/supervisor
// references; projects only store the id.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Clone deep-copies the aggregate so pure recomputations never alias the
// caller's slices.
func (p Project) Clone() Project {
	out := p
	out.Interventions = make([]Intervention, len(p.Interventions))
	for i, iv := range p.Interventions {
		out.Interventions[i] = iv.Clone()
	}
	out.AuditLog = append([]AuditEntry(nil), p.AuditLog...)
	return out
}

func (iv Intervention) Clone() Intervention {
	out := iv
	out.CostOfMaterials = cloneFloat(iv.CostOfMaterials)
	out.CostOfLabor = cloneFloat(iv.CostOfLabor)
	out.SubInterventions = make([]SubIntervention, len(iv.SubInterventions))
	for i, s := range iv.SubInterventions {
		out.SubInterventions[i] = s.Clone()
	}
	out.Stages = make([]Stage, len(iv.Stages))
	for i, st := range iv.Stages {
		out.Stages[i] = st.Clone()
	}
	return out
}

func (s SubIntervention) Clone() SubIntervention {
	out := s
	out.Quantity = cloneFloat(s.Quantity)
	out.CostOfMaterials = cloneFloat(s.CostOfMaterials)
	out.CostOfLabor = cloneFloat(s.CostOfLabor)
	out.UnitCost = cloneFloat(s.UnitCost)
	out.ImplementedQuantity = cloneFloat(s.ImplementedQuantity)
	return out
}

func (s Stage) Clone() Stage {
	out := s
	out.Files = append([]StageFile(nil), s.Files...)
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
