// ABOUTME: Pure mapping from raw API records to normalized rows
// ABOUTME: Entity-specific field mapping; missing optionals become explicit nulls
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harperreed/hublake/hubspot"
	"github.com/harperreed/hublake/models"
)

// Deal maps a raw deal into a normalized row, partitioned by creation date.
func Deal(raw hubspot.RawRecord) (models.Record, error) {
	if raw.ID == "" {
		return models.Record{}, fmt.Errorf("deal without id")
	}

	created := ParseTimestamp(raw.Prop("createdate"))
	modified := ParseTimestamp(raw.Prop("hs_lastmodifieddate"))
	if modified == nil {
		modified = created
	}
	partition := created
	if partition == nil {
		partition = modified
	}
	if partition == nil {
		return models.Record{}, fmt.Errorf("deal %s has no usable timestamp", raw.ID)
	}

	amount, err := floatColumn(raw.Prop("amount"))
	if err != nil {
		return models.Record{}, fmt.Errorf("deal %s: %w", raw.ID, err)
	}

	cols := map[string]any{
		"deal_name":        stringColumn(raw.Prop("dealname")),
		"owner_id":         stringColumn(raw.Prop("hubspot_owner_id")),
		"company_id":       assocColumn(raw, "companies"),
		"contact_id":       assocColumn(raw, "contacts"),
		"deal_stage":       stringColumn(raw.Prop("dealstage")),
		"amount":           amount,
		"closed_at":        FormatTimestamp(ParseTimestamp(raw.Prop("closedate"))),
		"op_detected_at":   FormatTimestamp(stageEnteredAt(raw, hubspot.StageOpportunity)),
		"proposal_prep_at": FormatTimestamp(stageEnteredAt(raw, hubspot.StageProposalPrep)),
		"proposal_sent_at": FormatTimestamp(stageEnteredAt(raw, hubspot.StageProposalSent)),
		"closed_won_at":    FormatTimestamp(stageEnteredAt(raw, hubspot.StageClosedWon)),
		"closed_lost_at":   FormatTimestamp(stageEnteredAt(raw, hubspot.StageClosedLost)),
		"source":           pickFirst(raw, hubspot.DealSourceProps),
	}

	return models.Record{
		Entity:     models.EntityDeals,
		ID:         raw.ID,
		Partition:  models.PartitionDate(*partition),
		CreatedAt:  created,
		ModifiedAt: modified,
		Columns:    cols,
	}, nil
}

// Contact maps a raw contact, partitioned by creation date with a
// last-modified fallback.
func Contact(raw hubspot.RawRecord) (models.Record, error) {
	if raw.ID == "" {
		return models.Record{}, fmt.Errorf("contact without id")
	}

	created := ParseTimestamp(raw.Prop("createdate"))
	modified := ParseTimestamp(raw.Prop("lastmodifieddate"))
	if modified == nil {
		modified = created
	}
	partition := created
	if partition == nil {
		partition = modified
	}
	if partition == nil {
		return models.Record{}, fmt.Errorf("contact %s has no usable timestamp", raw.ID)
	}

	return models.Record{
		Entity:     models.EntityContacts,
		ID:         raw.ID,
		Partition:  models.PartitionDate(*partition),
		CreatedAt:  created,
		ModifiedAt: modified,
		Columns: map[string]any{
			"owner_id":  stringColumn(raw.Prop("hubspot_owner_id")),
			"firstname": stringColumn(raw.Prop("firstname")),
			"lastname":  stringColumn(raw.Prop("lastname")),
			"email":     stringColumn(raw.Prop("email")),
		},
	}, nil
}

// Company maps a raw company, partitioned by last-modified date with a
// created fallback (companies are mostly-static and read incrementally by
// modification date).
func Company(raw hubspot.RawRecord) (models.Record, error) {
	if raw.ID == "" {
		return models.Record{}, fmt.Errorf("company without id")
	}

	created := ParseTimestamp(raw.Prop("createdate"))
	modified := ParseTimestamp(raw.Prop("hs_lastmodifieddate"))
	partition := modified
	if partition == nil {
		partition = created
	}
	if partition == nil {
		return models.Record{}, fmt.Errorf("company %s has no usable timestamp", raw.ID)
	}
	if modified == nil {
		modified = created
	}

	return models.Record{
		Entity:     models.EntityCompanies,
		ID:         raw.ID,
		Partition:  models.PartitionDate(*partition),
		CreatedAt:  created,
		ModifiedAt: modified,
		Columns: map[string]any{
			"name":   stringColumn(raw.Prop("name")),
			"domain": stringColumn(raw.Prop("domain")),
		},
	}, nil
}

// Activity maps one engagement record from the given sub-object. Records
// without a parseable creation timestamp are rejected (skipped and counted
// upstream, matching historical behavior).
func Activity(spec hubspot.ActivityObjectSpec, raw hubspot.RawRecord) (models.Record, error) {
	if raw.ID == "" {
		return models.Record{}, fmt.Errorf("%s activity without id", spec.ObjectType)
	}

	created := ParseTimestamp(raw.Prop("hs_createdate"))
	if created == nil {
		created = ParseTimestamp(raw.Prop("createdate"))
	}
	if created == nil {
		return models.Record{}, fmt.Errorf("%s activity %s has no creation timestamp", spec.ObjectType, raw.ID)
	}
	modified := ParseTimestamp(raw.Prop("hs_lastmodifieddate"))
	if modified == nil {
		modified = created
	}

	meta := activityMetadata(spec.ObjectType, raw)
	cols := map[string]any{
		"activity_type": ClassifyActivity(ActivityInput{
			TypeCode: activityTypeCode(spec.ObjectType, raw),
			Body:     activityBody(spec.ObjectType, raw),
			Source:   derefOr(raw.Prop("hs_activity_source"), ""),
			Default:  spec.DefaultType,
		}),
		"object_type": spec.ObjectType,
		"owner_id":    stringColumn(raw.Prop("hubspot_owner_id")),
	}
	for k, v := range meta {
		cols[k] = v
	}

	return models.Record{
		Entity:     models.EntityActivities,
		ID:         raw.ID,
		Partition:  models.PartitionDate(*created),
		CreatedAt:  created,
		ModifiedAt: modified,
		Columns:    cols,
	}, nil
}

// Owner maps a CRM user into the owners snapshot.
func Owner(o hubspot.Owner) (models.Record, error) {
	if o.ID == "" {
		return models.Record{}, fmt.Errorf("owner without id")
	}
	name := strings.TrimSpace(o.FirstName + " " + o.LastName)
	if name == "" {
		name = "Unknown"
	}
	var email any
	if o.Email != "" {
		email = o.Email
	}
	return models.Record{
		Entity:    models.EntityOwners,
		ID:        o.ID,
		Partition: models.SnapshotPartition,
		Columns: map[string]any{
			"name":  name,
			"email": email,
		},
	}, nil
}

// PipelineStages flattens pipeline definitions into one row per stage.
func PipelineStages(pipelines []hubspot.Pipeline) []models.Record {
	var out []models.Record
	for _, pipe := range pipelines {
		for _, st := range pipe.Stages {
			var isClosed any
			if st.Metadata.IsClosed != "" {
				isClosed = st.Metadata.IsClosed == "true"
			}
			var probability any
			if p, err := strconv.ParseFloat(st.Metadata.Probability, 64); err == nil {
				probability = p
			}
			out = append(out, models.Record{
				Entity:    models.EntityPipelines,
				ID:        st.ID,
				Partition: models.SnapshotPartition,
				Columns: map[string]any{
					"pipeline_id":    pipe.ID,
					"pipeline_label": pipe.Label,
					"stage_label":    st.Label,
					"display_order":  st.DisplayOrder,
					"is_closed":      isClosed,
					"probability":    probability,
				},
			})
		}
	}
	return out
}

// stageEnteredAt prefers the v2 date-entered property over the legacy one.
func stageEnteredAt(raw hubspot.RawRecord, code string) *time.Time {
	if t := ParseTimestamp(raw.Prop("hs_v2_date_entered_" + code)); t != nil {
		return t
	}
	return ParseTimestamp(raw.Prop("hs_date_entered_" + code))
}

func pickFirst(raw hubspot.RawRecord, props []string) any {
	for _, p := range props {
		if v := raw.Prop(p); v != nil && *v != "" {
			return *v
		}
	}
	return nil
}

func activityTypeCode(objectType string, raw hubspot.RawRecord) string {
	switch objectType {
	case "communications":
		return derefOr(raw.Prop("hs_communication_channel_type"), "")
	case "emails":
		return derefOr(raw.Prop("hs_email_direction"), "")
	}
	return ""
}

func activityBody(objectType string, raw hubspot.RawRecord) string {
	switch objectType {
	case "communications":
		if v := raw.Prop("hs_communication_body"); v != nil && *v != "" {
			return *v
		}
		return derefOr(raw.Prop("hs_body_preview"), "")
	case "notes":
		return derefOr(raw.Prop("hs_note_body"), "")
	}
	return ""
}

// activityMetadata extracts the per-sub-object detail columns.
func activityMetadata(objectType string, raw hubspot.RawRecord) map[string]any {
	switch objectType {
	case "communications":
		return map[string]any{
			"body":   stringColumn(raw.Prop("hs_communication_body")),
			"source": "CRM_v3_Communications",
		}
	case "tasks":
		return map[string]any{
			"subject": stringColumn(raw.Prop("hs_task_subject")),
			"body":    stringColumn(raw.Prop("hs_task_body")),
			"status":  stringColumn(raw.Prop("hs_task_status")),
		}
	case "calls":
		return map[string]any{
			"subject":  stringColumn(raw.Prop("hs_call_title")),
			"body":     stringColumn(raw.Prop("hs_call_body")),
			"duration": stringColumn(raw.Prop("hs_call_duration")),
			"outcome":  stringColumn(raw.Prop("hs_call_outcome")),
		}
	case "meetings":
		return map[string]any{
			"subject": stringColumn(raw.Prop("hs_meeting_title")),
			"body":    stringColumn(raw.Prop("hs_meeting_body")),
			"outcome": stringColumn(raw.Prop("hs_meeting_outcome")),
		}
	case "emails":
		return map[string]any{
			"subject":   stringColumn(raw.Prop("hs_email_subject")),
			"body":      stringColumn(raw.Prop("hs_email_text")),
			"direction": stringColumn(raw.Prop("hs_email_direction")),
		}
	case "notes":
		return map[string]any{
			"body": stringColumn(raw.Prop("hs_note_body")),
		}
	}
	return map[string]any{"body": nil}
}

// stringColumn converts an optional property into a column value: absent or
// null stays nil, everything else is the string as-is (empty included —
// "unknown" and "empty" are different facts).
func stringColumn(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatColumn(v *string) (any, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(*v, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable numeric value %q", *v)
	}
	return f, nil
}

func assocColumn(raw hubspot.RawRecord, key string) any {
	if id := raw.AssociationID(key); id != "" {
		return id
	}
	return nil
}

func derefOr(v *string, fallback string) string {
	if v == nil {
		return fallback
	}
	return *v
}
