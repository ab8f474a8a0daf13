package models

import (
	"time"

	"stk-crm/internal/util"
)

// Stage is a position on the ten step lead tracker.
type Stage int

const (
	StageNew Stage = iota
	StageQuotationGenerated
	StageSentToApproval
	StageApproved
	StageSentToCustomer
	StageInFollowup
	StageAssignedToStore
	StageDispatched
	StageDelivered
	StageClosed
)

var stageNames = [...]string{
	"New",
	"Quotation Generated",
	"Sent to Approval",
	"Approved",
	"Send to Customer",
	"In Followup",
	"Assigned To Store",
	"Dispatched",
	"Delivered",
	"Close",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// InferStage places a lead on the tracker from its status, timestamps and
// store order. order may be nil when the lead was never handed over.
func InferStage(lead *Lead, order *StoreOrder) Stage {
	if lead.Status == StatusClosed {
		return StageClosed
	}
	if order != nil {
		switch {
		case order.Status == OrderDelivered:
			return StageDelivered
		case order.Status == OrderDispatched:
			return StageDispatched
		case order.HandoverAt.Valid:
			return StageAssignedToStore
		}
	}

	switch {
	case lead.CustomerQuotationSentAt.Valid && lead.Status == StatusUpcoming:
		return StageInFollowup
	case lead.CustomerQuotationSentAt.Valid:
		return StageSentToCustomer
	case lead.ApproverStatus == ApprovalApproved && lead.ApproverResponseAt.Valid:
		return StageApproved
	case lead.ApproverRequestAt.Valid:
		return StageSentToApproval
	case lead.QuotationCreatedAt.Valid:
		return StageQuotationGenerated
	}
	return StageNew
}

// LastActivity is the most advanced milestone timestamp recorded for the lead.
func LastActivity(lead *Lead, order *StoreOrder) time.Time {
	switch {
	case order != nil && order.DeliveredAt.Valid:
		return order.DeliveredAt.Time
	case lead.CustomerQuotationSentAt.Valid:
		return lead.CustomerQuotationSentAt.Time
	case lead.QuotationCreatedAt.Valid:
		return lead.QuotationCreatedAt.Time
	}
	return lead.LeadCreatedAt
}

// LastUpdateLabel renders LastActivity relative to now.
func LastUpdateLabel(lead *Lead, order *StoreOrder, now time.Time) string {
	return util.TimeAgo(LastActivity(lead, order), now)
}
