package manager

import (
	"context"

	"github.com/diskdevmgr/ddm/disksystem"
	"github.com/diskdevmgr/ddm/partition"
)

// stubSystem is a minimal disksystem.DiskSystem whose identify/scan/
// execute behavior is supplied per test via function fields, standing
// in for a real partitioning or file-system plugin.
type stubSystem struct {
	name string

	identifyFn func(p *partition.Partition) float64
	scanFn     func(p *partition.Partition, allocateID func() int32) error
	executeFn  func(op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error

	executed []disksystem.Operation
}

func (s *stubSystem) Name() string       { return s.name }
func (s *stubSystem) PrettyName() string { return s.name }
func (s *stubSystem) IsFileSystem() bool { return false }

func (s *stubSystem) Identify(ctx context.Context, p *partition.Partition, devicePath string) (float64, any, error) {
	if s.identifyFn == nil {
		return -1, nil, nil
	}
	return s.identifyFn(p), nil, nil
}

func (s *stubSystem) Scan(ctx context.Context, p *partition.Partition, cookie any, allocateID func() int32) error {
	if s.scanFn == nil {
		return nil
	}
	return s.scanFn(p, allocateID)
}

func (s *stubSystem) FreeIdentifyCookie(cookie any)            {}
func (s *stubSystem) FreeCookie(p *partition.Partition)        {}
func (s *stubSystem) FreeContentCookie(p *partition.Partition) {}

func (s *stubSystem) Supports(op disksystem.Operation) (bool, bool) { return true, false }
func (s *stubSystem) IsSubSystemFor(p *partition.Partition) bool    { return false }

func (s *stubSystem) Validate(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params) error {
	return nil
}

func (s *stubSystem) Execute(ctx context.Context, op disksystem.Operation, p *partition.Partition, params *disksystem.Params, jc disksystem.JobContext) error {
	s.executed = append(s.executed, op)
	if s.executeFn != nil {
		return s.executeFn(op, p, params)
	}
	return nil
}

func (s *stubSystem) ShadowPartitionChanged(ctx context.Context, op disksystem.Operation, p *partition.Partition) error {
	return nil
}

func (s *stubSystem) GetNextSupportedType(cookie *int) (string, bool) { return "", false }
func (s *stubSystem) GetTypeForContentType(contentType string) (string, bool) {
	return "", false
}
func (s *stubSystem) GetPartitionableSpaces(p *partition.Partition) ([]disksystem.PartitionableSpace, bool, error) {
	return nil, false, nil
}
