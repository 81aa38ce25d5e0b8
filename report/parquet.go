package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/pkg/errors"

	"github.com/timpalpant/go-tenk"
)

// TurnRow is the record of one turn in a ParquetLog.
type TurnRow struct {
	RunID     string `parquet:"run_id,dict"`
	Tag       string `parquet:"tag,dict"`
	Turn      int64  `parquet:"turn"`
	Outcome   string `parquet:"outcome,dict"`
	Score     int32  `parquet:"score"`
	Rolls     int32  `parquet:"rolls"`
	NumStates int64  `parquet:"num_states"`
}

// ParquetLog is a tenk.Reporter that writes one row per turn to a Parquet
// file. Rows are written to a temporary file that is renamed into place
// by Close, so an interrupted run never leaves a truncated log behind.
type ParquetLog struct {
	runID   string
	tag     string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]
	buf    []TurnRow
	rows   int
}

const parquetBatchSize = 4096

// NewParquetLog creates a ParquetLog writing to path. Every row is
// labelled with tag and a new random run id.
func NewParquetLog(path, tag string) (*ParquetLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}

	tmpPath := path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open tmp parquet")
	}

	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "tenk_turn_v1")

	return &ParquetLog{
		runID:   uuid.New().String(),
		tag:     tag,
		tmpPath: tmpPath,
		outPath: path,
		file:    f,
		writer:  w,
	}, nil
}

// RunID returns the id written to every row of the log.
func (l *ParquetLog) RunID() string {
	return l.runID
}

// Report implements tenk.Reporter.
func (l *ParquetLog) Report(stats tenk.TurnStats) error {
	if l.writer == nil {
		return errors.New("parquet log is closed")
	}

	numStates := 0
	for _, n := range stats.TableSizes {
		numStates += n
	}

	l.buf = append(l.buf, TurnRow{
		RunID:     l.runID,
		Tag:       l.tag,
		Turn:      int64(stats.Turn),
		Outcome:   stats.Outcome.String(),
		Score:     int32(stats.Score),
		Rolls:     int32(stats.Rolls),
		NumStates: int64(numStates),
	})

	if len(l.buf) >= parquetBatchSize {
		return l.flush()
	}

	return nil
}

func (l *ParquetLog) flush() error {
	if len(l.buf) == 0 {
		return nil
	}

	if _, err := l.writer.Write(l.buf); err != nil {
		return errors.Wrap(err, "write parquet rows")
	}

	l.rows += len(l.buf)
	l.buf = l.buf[:0]
	return nil
}

// Close implements io.Closer. The log is moved into place even if no
// turns were reported.
func (l *ParquetLog) Close() error {
	if l.writer == nil {
		return nil
	}

	err := l.flush()
	if closeErr := l.writer.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "close parquet writer")
	}
	l.writer = nil

	_ = l.file.Sync()
	if closeErr := l.file.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "close parquet file")
	}

	if err != nil {
		_ = os.Remove(l.tmpPath)
		return err
	}

	if err := os.Rename(l.tmpPath, l.outPath); err != nil {
		return errors.Wrap(err, "rename parquet")
	}

	glog.V(1).Infof("Wrote %d turns of run %s to %s", l.rows, l.runID, l.outPath)
	return nil
}

// ReadTurns reads all rows of a log written by ParquetLog.
func ReadTurns(path string) ([]TurnRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, errors.Wrapf(err, "open parquet %s", path)
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	rows := make([]TurnRow, reader.NumRows())
	n := 0
	for n < len(rows) {
		m, err := reader.Read(rows[n:])
		n += m
		if err == io.EOF || (err == nil && m == 0) {
			break
		} else if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
	}

	return rows[:n], nil
}
