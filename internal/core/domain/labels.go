package domain

// Group labels shared across document kinds.
const (
	GroupDetails = "details"
	GroupSystem  = "system"
)

// System group fields.
const (
	FieldNodeLabel = "node_label"
	FieldNodeType  = "type"
)

// Document node types.
const (
	TypeRoot        = "root"
	TypeLedger      = "ledger"
	TypeAccount     = "account"
	TypeBalance     = "balance"
	TypeTransaction = "transaction"
	TypeComponent   = "component"
	TypeEvent       = "event"
	TypeBucket      = "trxbucket"
	TypeSettings    = "settings"
)

// Account detail fields.
const (
	FieldAccountName    = "account_name"
	FieldAccountTagType = "account_tag_type"
	FieldAccountCode    = "account_code"
	FieldAccountPath    = "path"
	FieldParentAccount  = "parent_account"
	FieldLedgerAccount  = "ledger_account"
)

// Transaction detail fields.
const (
	FieldTrxName     = "trx_name"
	FieldTrxMemo     = "trx_memo"
	FieldTrxDate     = "trx_date"
	FieldTrxLedger   = "trx_ledger"
	FieldTrxID       = "id"
	FieldTrxApprover = "approved_by"
)

// Component group label and fields.
const (
	GroupComponent        = "component"
	FieldComponentAccount = "account"
	FieldComponentAmount  = "amount"
	FieldComponentMemo    = "memo"
	FieldComponentFrom    = "from"
	FieldComponentTo      = "to"
	FieldComponentTag     = "type"
	FieldComponentEvent   = "event"
)

// Balance fields are named local_<SYMBOL> / global_<SYMBOL> inside the details
// group, plus a monotonically increasing revision counter.
const (
	LocalBalancePrefix  = "local_"
	GlobalBalancePrefix = "global_"
	FieldRevision       = "revision"
)

// Event detail fields.
const (
	FieldEventSource = "source"
	FieldEventCursor = "cursor"
)

// Relation kinds. Each Rel* pairs with its RelRev* counterpart; the repository
// Link operation writes both directions in one call.
const (
	RelLedger       = "ledger"
	RelRevLedger    = "ownedby"
	RelAccount      = "account"
	RelRevAccount   = "ownedby"
	RelBalances     = "balances"
	RelRevBalances  = "balanceof"
	RelComponent    = "component"
	RelRevComponent = "transaction"
	RelComponentAcc = "account"
	RelRevCompAcc   = "component"
	RelEvent        = "event"
	RelRevEvent     = "component"
	RelBucket       = "trxbucket"
	RelRevBucket    = "bucketof"
	RelUnapproved   = "unapproved"
	RelApproved     = "approved"
	RelRevTrx       = "trxof"
	RelEventBucket  = "eventbucket"
	RelRevEventBkt  = "bucketof"
	RelBucketEvent  = "event"
	RelRevBucketEvt = "bucketof"
	RelSettings     = "settings"
	RelRevSettings  = "settingsof"
)

// Well-known current-document index keys.
const (
	CurrentRootKey     = "root"
	CurrentSettingsKey = "settings"
)

// Transaction tag types: an account posting is either a debit or a credit.
const (
	TagDebit  = "DEBIT"
	TagCredit = "CREDIT"
)

// MaxRemovableDocs bounds how many documents one cleanup invocation may erase;
// callers continue by re-invoking.
const MaxRemovableDocs = 100
