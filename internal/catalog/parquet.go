package catalog

import (
	"context"
	"fmt"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// ParquetRow is the on-disk layout of a pair snapshot
type ParquetRow struct {
	PoolAddress   string `parquet:"name=pool_address, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token0Symbol  string `parquet:"name=token0_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token0Address string `parquet:"name=token0_address, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token1Symbol  string `parquet:"name=token1_symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Token1Address string `parquet:"name=token1_address, type=BYTE_ARRAY, convertedtype=UTF8"`
	TxCount       int64  `parquet:"name=tx_count, type=INT64"`
}

// WriteParquet stores listings as a snapshot that ParquetSource can read back
func WriteParquet(path string, listings []Listing) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 1)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, l := range listings {
		row := ParquetRow{
			PoolAddress:   l.PoolAddress,
			Token0Symbol:  l.Token0Symbol,
			Token0Address: l.Token0Address,
			Token1Symbol:  l.Token1Symbol,
			Token1Address: l.Token1Address,
			TxCount:       l.TxCount,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	return nil
}

// ParquetSource serves pairs from a snapshot file, ranked by tx count
type ParquetSource struct {
	path string
}

func NewParquetSource(path string) *ParquetSource {
	return &ParquetSource{path: path}
}

var _ arbitrage.PairCatalog = (*ParquetSource)(nil)

func (s *ParquetSource) ListTopPairs(ctx context.Context, limit int) ([]arbitrage.PairInfo, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit %d must be >= 1", arbitrage.ErrValidation, limit)
	}

	listings, err := s.Listings()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ToPairInfos(topByTxCount(listings, limit))
}

// Listings reads every row in file order
func (s *ParquetSource) Listings() ([]Listing, error) {
	fr, err := local.NewLocalFileReader(s.path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 1)
	if err != nil {
		return nil, fmt.Errorf("create parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	rows := make([]ParquetRow, numRows)
	if numRows > 0 {
		if err := pr.Read(&rows); err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
	}

	listings := make([]Listing, 0, len(rows))
	for _, r := range rows {
		listings = append(listings, Listing{
			PoolAddress:   r.PoolAddress,
			Token0Symbol:  r.Token0Symbol,
			Token0Address: r.Token0Address,
			Token1Symbol:  r.Token1Symbol,
			Token1Address: r.Token1Address,
			TxCount:       r.TxCount,
		})
	}
	return listings, nil
}
