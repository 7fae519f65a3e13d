package models

// EquipmentKind is the family of process an equipment unit performs.
type EquipmentKind string

const (
	KindLithography EquipmentKind = "lithography"
	KindEtching     EquipmentKind = "etching"
	KindDeposition  EquipmentKind = "deposition"
	KindInspection  EquipmentKind = "inspection"
	KindCleaning    EquipmentKind = "cleaning"
)

// EquipmentStatus is the current operating state of an equipment unit.
type EquipmentStatus string

const (
	EquipmentIdle        EquipmentStatus = "IDLE"
	EquipmentRunning     EquipmentStatus = "RUNNING"
	EquipmentDown        EquipmentStatus = "DOWN"
	EquipmentMaintenance EquipmentStatus = "MAINTENANCE"
)

// LotStatus is a lot's position in the lifecycle state graph.
type LotStatus string

const (
	LotPending   LotStatus = "PENDING"
	LotQueued    LotStatus = "QUEUED"
	LotRunning   LotStatus = "RUNNING"
	LotCompleted LotStatus = "COMPLETED"
	LotFailed    LotStatus = "FAILED"
	LotCancelled LotStatus = "CANCELLED"
)

// Severity is the classified strength of an anomaly detection.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Zone is the safety-circuit classification derived from Severity.
type Zone string

const (
	ZoneGreen  Zone = "green"
	ZoneYellow Zone = "yellow"
	ZoneRed    Zone = "red"
)

// ActionStatus is the autonomy-level disposition of an incident's action.
type ActionStatus string

const (
	ActionAutoExecuted    ActionStatus = "auto_executed"
	ActionPendingApproval ActionStatus = "pending_approval"
	ActionAlertOnly       ActionStatus = "alert_only"
	ActionApproved        ActionStatus = "approved"
	ActionRejected        ActionStatus = "rejected"
)

// AgentKind identifies the class of automated collaborator registering
// with the control plane (a sentinel process, a virtual-metrology worker,
// a chaos-injection façade, etc).
type AgentKind string

const (
	AgentSentinel        AgentKind = "sentinel"
	AgentVirtualMetrology AgentKind = "virtual_metrology"
	AgentChaos           AgentKind = "chaos"
	AgentOperatorConsole AgentKind = "operator_console"
)

// AgentStatus reflects whether an agent is considered live by heartbeat.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentInactive AgentStatus = "inactive"
)
