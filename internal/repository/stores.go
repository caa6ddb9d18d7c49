package repository

import "github.com/alexanderramin/signoff/internal/db"

// Stores bundles every repository bound to one connection or transaction.
type Stores struct {
	Tasks      TaskRepo
	Flows      FlowRepo
	Nodes      NodeRepo
	Records    RecordRepo
	Principals PrincipalRepo
	Sequences  TaskSequenceRepo
}

// NewStores binds all repositories to conn. Inside a unit of work pass the
// transaction handle so every write commits or rolls back together.
func NewStores(conn db.DBTX) *Stores {
	return &Stores{
		Tasks:      NewSQLTaskRepo(conn),
		Flows:      NewSQLFlowRepo(conn),
		Nodes:      NewSQLNodeRepo(conn),
		Records:    NewSQLRecordRepo(conn),
		Principals: NewSQLPrincipalRepo(conn),
		Sequences:  NewSQLTaskSequenceRepo(conn),
	}
}

var (
	_ TaskRepo         = (*SQLTaskRepo)(nil)
	_ FlowRepo         = (*SQLFlowRepo)(nil)
	_ NodeRepo         = (*SQLNodeRepo)(nil)
	_ RecordRepo       = (*SQLRecordRepo)(nil)
	_ PrincipalRepo    = (*SQLPrincipalRepo)(nil)
	_ TaskSequenceRepo = (*SQLTaskSequenceRepo)(nil)
)
