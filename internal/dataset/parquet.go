package dataset

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

func readFutureParquet(path string) ([]futureRow, error) {
	rows, err := parquet.ReadFile[futureRow](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

func writeFutureParquet(path string, rows []futureRow) error {
	if err := parquet.WriteFile(path, rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
