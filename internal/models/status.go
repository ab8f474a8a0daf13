package models

import "fmt"

// LeadStatus is the sales-side state of a lead.
type LeadStatus string

const (
	StatusToday           LeadStatus = "Today"
	StatusUpcoming        LeadStatus = "Upcoming"
	StatusHandoverPending LeadStatus = "Handover_Pending"
	StatusDispatched      LeadStatus = "Dispatched"
	StatusDelivered       LeadStatus = "Delivered"
	StatusClosed          LeadStatus = "Closed"
)

// ActiveStatuses are the statuses a sales executive is still working.
var ActiveStatuses = []LeadStatus{StatusToday, StatusUpcoming}

// IsActive reports whether the lead still needs follow-up work.
func (s LeadStatus) IsActive() bool {
	return s == StatusToday || s == StatusUpcoming
}

// IsFinal reports whether the lead has left the pipeline.
func (s LeadStatus) IsFinal() bool {
	return s == StatusDelivered || s == StatusClosed
}

type LeadEvent string

const (
	EventFollowUp LeadEvent = "follow_up"
	EventHandover LeadEvent = "handover"
	EventDispatch LeadEvent = "dispatch"
	EventDeliver  LeadEvent = "deliver"
	EventClose    LeadEvent = "close"
)

type leadTransition struct {
	from []LeadStatus
	to   LeadStatus
}

var leadTransitions = map[LeadEvent]leadTransition{
	EventFollowUp: {from: []LeadStatus{StatusToday, StatusUpcoming}, to: StatusUpcoming},
	EventHandover: {from: []LeadStatus{StatusToday, StatusUpcoming}, to: StatusHandoverPending},
	EventDispatch: {from: []LeadStatus{StatusHandoverPending}, to: StatusDispatched},
	EventDeliver:  {from: []LeadStatus{StatusDispatched}, to: StatusDelivered},
	EventClose:    {from: []LeadStatus{StatusToday, StatusUpcoming}, to: StatusClosed},
}

// NextLeadStatus returns the status a lead moves to when event fires in from.
func NextLeadStatus(event LeadEvent, from LeadStatus) (LeadStatus, error) {
	tr, ok := leadTransitions[event]
	if !ok {
		return "", fmt.Errorf("unknown lead event %q: %w", event, ErrInvalidTransition)
	}
	for _, s := range tr.from {
		if s == from {
			return tr.to, nil
		}
	}
	return "", &TransitionError{Subject: "lead", Event: string(event), From: string(from)}
}

// ApprovalStatus is the team lead review state of a lead's quotation.
// The zero value means the quotation was never submitted.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = ""
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

type ApprovalEvent string

const (
	EventSubmit  ApprovalEvent = "submit"
	EventApprove ApprovalEvent = "approve"
	EventReject  ApprovalEvent = "reject"
)

var approvalTransitions = map[ApprovalEvent]struct {
	from []ApprovalStatus
	to   ApprovalStatus
}{
	EventSubmit:  {from: []ApprovalStatus{ApprovalNone, ApprovalRejected, ApprovalApproved}, to: ApprovalPending},
	EventApprove: {from: []ApprovalStatus{ApprovalPending}, to: ApprovalApproved},
	EventReject:  {from: []ApprovalStatus{ApprovalPending}, to: ApprovalRejected},
}

func NextApprovalStatus(event ApprovalEvent, from ApprovalStatus) (ApprovalStatus, error) {
	tr, ok := approvalTransitions[event]
	if !ok {
		return "", fmt.Errorf("unknown approval event %q: %w", event, ErrInvalidTransition)
	}
	for _, s := range tr.from {
		if s == from {
			return tr.to, nil
		}
	}
	state := string(from)
	if state == "" {
		state = "NONE"
	}
	return "", &TransitionError{Subject: "quotation", Event: string(event), From: state}
}

// ApprovalEventFor maps a review decision to its event.
func ApprovalEventFor(decision ApprovalStatus) (ApprovalEvent, bool) {
	switch decision {
	case ApprovalApproved:
		return EventApprove, true
	case ApprovalRejected:
		return EventReject, true
	}
	return "", false
}

// OrderStatus is the store pipeline state of a handed over lead.
type OrderStatus string

const (
	OrderPending    OrderStatus = "Pending"
	OrderDispatched OrderStatus = "Dispatched"
	OrderDelivered  OrderStatus = "Delivered"
)

// NextOrderStatus only ever advances one step.
func NextOrderStatus(from OrderStatus) (OrderStatus, error) {
	switch from {
	case OrderPending:
		return OrderDispatched, nil
	case OrderDispatched:
		return OrderDelivered, nil
	}
	return "", &TransitionError{Subject: "order", Event: "advance", From: string(from)}
}
