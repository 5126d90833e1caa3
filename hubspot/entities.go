// ABOUTME: Per-entity search specs mirroring the CRM property model
// ABOUTME: Deal stage/source properties and the six activity sub-objects
package hubspot

// Deal stage IDs in the portal's pipeline. The v2 date-entered property is
// preferred over the legacy one when both are present.
const (
	StageOpportunity  = "appointmentscheduled"
	StageProposalPrep = "1067388789"
	StageProposalSent = "presentationscheduled"
	StageClosedWon    = "closedwon"
	StageClosedLost   = "closedlost"
)

// StageCodes lists the tracked stages in output-column order.
var StageCodes = []string{
	StageOpportunity,
	StageProposalPrep,
	StageProposalSent,
	StageClosedWon,
	StageClosedLost,
}

// DealSourceProps is the pick-first precedence chain for a deal's source.
var DealSourceProps = []string{
	"deal_source",
	"source",
	"lead_source",
	"hs_analytics_source",
	"hs_analytics_source_data_1",
}

func dealProperties() []string {
	props := []string{
		"dealname",
		"dealstage",
		"hubspot_owner_id",
		"amount",
		"createdate",
		"closedate",
		"hs_lastmodifieddate",
	}
	for _, sid := range StageCodes {
		props = append(props, "hs_date_entered_"+sid, "hs_v2_date_entered_"+sid)
	}
	props = append(props, DealSourceProps...)
	return props
}

// DealSpec is the search spec for the deals dataset.
func DealSpec() SearchSpec {
	return SearchSpec{
		ObjectType:   "deals",
		Properties:   dealProperties(),
		SearchProp:   "createdate",
		FallbackProp: "hs_createdate",
	}
}

// DealModifiedProp is the property the dual fetch filters on for changes.
const DealModifiedProp = "hs_lastmodifieddate"

// ContactSpec is the search spec for the contacts dataset.
func ContactSpec() SearchSpec {
	return SearchSpec{
		ObjectType: "contacts",
		Properties: []string{
			"hubspot_owner_id",
			"createdate",
			"lastmodifieddate",
			"hs_object_id",
			"firstname",
			"lastname",
			"email",
		},
		SearchProp:   "createdate",
		FallbackProp: "hs_createdate",
	}
}

const ContactModifiedProp = "lastmodifieddate"

// CompanySpec is the search spec for the companies dimension.
func CompanySpec() SearchSpec {
	return SearchSpec{
		ObjectType: "companies",
		Properties: []string{
			"name",
			"domain",
			"createdate",
			"hs_lastmodifieddate",
		},
		SearchProp:   "createdate",
		FallbackProp: "hs_createdate",
	}
}

const CompanyModifiedProp = "hs_lastmodifieddate"

// ActivityObjectSpec describes one of the engagement object types that feed
// the activities dataset.
type ActivityObjectSpec struct {
	ObjectType  string
	DefaultType string // classification fallback for the sub-object
	Spec        SearchSpec
}

var activityCommonProps = []string{
	"hs_createdate",
	"hs_lastmodifieddate",
	"hubspot_owner_id",
}

// ActivitySpecs lists the engagement objects in fetch order. Each is queried
// independently; a failing sub-object is skipped, not fatal.
func ActivitySpecs() []ActivityObjectSpec {
	specs := []struct {
		object      string
		defaultType string
		props       []string
	}{
		{"emails", "EMAIL", []string{"hs_email_subject", "hs_email_direction", "hs_email_text"}},
		{"calls", "CALL", []string{"hs_call_title", "hs_call_body", "hs_call_duration", "hs_call_outcome"}},
		{"meetings", "MEETING", []string{"hs_meeting_title", "hs_meeting_body", "hs_meeting_outcome"}},
		{"tasks", "TASK", []string{"hs_task_subject", "hs_task_body", "hs_task_status", "hs_task_type"}},
		{"notes", "NOTE", []string{"hs_note_body"}},
		{"communications", "NOTE", []string{"hs_communication_channel_type", "hs_body_preview", "hs_communication_body"}},
	}

	out := make([]ActivityObjectSpec, 0, len(specs))
	for _, s := range specs {
		props := append(append([]string{}, activityCommonProps...), s.props...)
		out = append(out, ActivityObjectSpec{
			ObjectType:  s.object,
			DefaultType: s.defaultType,
			Spec: SearchSpec{
				ObjectType:   s.object,
				Properties:   props,
				SearchProp:   "hs_createdate",
				FallbackProp: "createdate",
			},
		})
	}
	return out
}

const ActivityModifiedProp = "hs_lastmodifieddate"
