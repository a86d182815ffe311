package fileStore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

const (
	blockNumbersFile = "block_numbers.json"
	distributorsFile = "distributors.json"
	distributorsDir  = "distributors"
	balancesFile     = "balances.json"
	outflowsFile     = "outflows.json"
)

// FileStore owns the on-disk document layout:
//
//	<baseDir>/block_numbers.json
//	<baseDir>/distributors.json
//	<baseDir>/distributors/<EIP-55 address>/balances.json
//	<baseDir>/distributors/<EIP-55 address>/outflows.json
//
// Reads return (nil, nil) when the backing file is absent; callers decide
// what absence means. Writes validate the whole document first and leave
// the existing file untouched on any failure.
type FileStore struct {
	logger  *zap.Logger
	baseDir string
}

func NewFileStore(baseDir string, l *zap.Logger) *FileStore {
	return &FileStore{
		logger:  l,
		baseDir: baseDir,
	}
}

func (fs *FileStore) BaseDir() string {
	return fs.baseDir
}

func (fs *FileStore) blockNumbersPath() string {
	return filepath.Join(fs.baseDir, blockNumbersFile)
}

func (fs *FileStore) distributorsPath() string {
	return filepath.Join(fs.baseDir, distributorsFile)
}

// DistributorDir names the per-distributor directory. Address.Hex() is
// EIP-55 checksummed, so paths are checksum-normalized no matter how the
// caller spelled the address.
func (fs *FileStore) DistributorDir(distributor common.Address) string {
	return filepath.Join(fs.baseDir, distributorsDir, distributor.Hex())
}

func (fs *FileStore) balancesPath(distributor common.Address) string {
	return filepath.Join(fs.DistributorDir(distributor), balancesFile)
}

func (fs *FileStore) outflowsPath(distributor common.Address) string {
	return filepath.Join(fs.DistributorDir(distributor), outflowsFile)
}

func (fs *FileStore) ReadBlockNumbers() (*types.BlockNumberIndex, error) {
	return readDocument[types.BlockNumberIndex](fs.blockNumbersPath())
}

func (fs *FileStore) WriteBlockNumbers(doc *types.BlockNumberIndex) error {
	if err := validateBlockNumberIndex(doc); err != nil {
		return err
	}
	return fs.writeDocument(fs.blockNumbersPath(), doc)
}

func (fs *FileStore) ReadDistributors() (*types.DistributorRegistry, error) {
	return readDocument[types.DistributorRegistry](fs.distributorsPath())
}

func (fs *FileStore) WriteDistributors(doc *types.DistributorRegistry) error {
	if err := validateDistributorRegistry(doc); err != nil {
		return err
	}
	return fs.writeDocument(fs.distributorsPath(), doc)
}

func (fs *FileStore) ReadBalances(distributor common.Address) (*types.BalanceSeries, error) {
	return readDocument[types.BalanceSeries](fs.balancesPath(distributor))
}

func (fs *FileStore) WriteBalances(distributor common.Address, doc *types.BalanceSeries) error {
	if err := validateBalanceSeries(distributor, doc); err != nil {
		return err
	}
	return fs.writeDocument(fs.balancesPath(distributor), doc)
}

func (fs *FileStore) ReadOutflows(distributor common.Address) (*types.OutflowSeries, error) {
	return readDocument[types.OutflowSeries](fs.outflowsPath(distributor))
}

func (fs *FileStore) WriteOutflows(distributor common.Address, doc *types.OutflowSeries) error {
	if err := validateOutflowSeries(distributor, doc); err != nil {
		return err
	}
	return fs.writeDocument(fs.outflowsPath(distributor), doc)
}

func readDocument[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return doc, nil
}

// writeDocument serializes pretty-printed JSON and swaps it into place
// with a rename, so a failed write never truncates the previous file.
func (fs *FileStore) writeDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize %s", path)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", tmpPath)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Wrapf(err, "failed to replace %s", path)
	}

	fs.logger.Sugar().Debugw("Wrote document",
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return nil
}
