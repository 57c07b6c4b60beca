// Package writer persists backtest artifacts, the resampled bar series
// and the order history, as parquet files under the configured output
// directory, with optional S3 upload of every written file.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"arbflow/config"
	"arbflow/logger"
	"arbflow/models"
)

// BarRecord is the parquet row shape of one resampled bar.
type BarRecord struct {
	Symbol         string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Market         string  `parquet:"name=market, type=BYTE_ARRAY, convertedtype=UTF8"`
	IntervalStart  int64   `parquet:"name=interval_start, type=INT64"`
	Open           float64 `parquet:"name=open, type=DOUBLE"`
	High           float64 `parquet:"name=high, type=DOUBLE"`
	Low            float64 `parquet:"name=low, type=DOUBLE"`
	Close          float64 `parquet:"name=close, type=DOUBLE"`
	Volume         float64 `parquet:"name=volume, type=DOUBLE"`
	BuyVolume      float64 `parquet:"name=buy_volume, type=DOUBLE"`
	SellVolume     float64 `parquet:"name=sell_volume, type=DOUBLE"`
	TradeCount     int64   `parquet:"name=trade_count, type=INT64"`
	BuyTradeCount  int64   `parquet:"name=buy_trade_count, type=INT64"`
	SellTradeCount int64   `parquet:"name=sell_trade_count, type=INT64"`
	LastSide       string  `parquet:"name=last_side, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// OrderRecord is the parquet row shape of one ledger order.
type OrderRecord struct {
	RunID         string  `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ClientOrderID string  `parquet:"name=client_order_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol        string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Side          string  `parquet:"name=side, type=BYTE_ARRAY, convertedtype=UTF8"`
	PositionSide  string  `parquet:"name=position_side, type=BYTE_ARRAY, convertedtype=UTF8"`
	Type          string  `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Price         float64 `parquet:"name=price, type=DOUBLE"`
	Quantity      float64 `parquet:"name=quantity, type=DOUBLE"`
	Status        string  `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp     int64   `parquet:"name=timestamp, type=INT64"`
}

// ArtifactWriter writes run artifacts locally and mirrors them to S3
// when the writer config enables it.
type ArtifactWriter struct {
	cfg   config.WriterConfig
	runID string
	s3    *Uploader
	log   *logger.Entry
}

func NewArtifactWriter(cfg config.WriterConfig, runID string) (*ArtifactWriter, error) {
	w := &ArtifactWriter{
		cfg:   cfg,
		runID: runID,
		log:   logger.GetLogger().WithComponent("artifact_writer").WithFields(logger.Fields{"run_id": runID}),
	}
	if cfg.S3.Enabled {
		up, err := NewUploader(cfg.S3)
		if err != nil {
			return nil, err
		}
		w.s3 = up
	}
	return w, nil
}

// WriteBars persists one market's bar series for a symbol and returns
// the local file path.
func (w *ArtifactWriter) WriteBars(symbol string, market models.Market, bars []models.Bar) (string, error) {
	name := fmt.Sprintf("%s_%s_%s_bars.parquet", w.runID, symbol, market)
	path := filepath.Join(w.cfg.OutputDir, name)

	rows := make([]interface{}, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, BarRecord{
			Symbol:         symbol,
			Market:         string(market),
			IntervalStart:  b.IntervalStart,
			Open:           b.Open,
			High:           b.High,
			Low:            b.Low,
			Close:          b.Close,
			Volume:         b.Volume,
			BuyVolume:      b.BuyVolume,
			SellVolume:     b.SellVolume,
			TradeCount:     b.TradeCount,
			BuyTradeCount:  b.BuyTradeCount,
			SellTradeCount: b.SellTradeCount,
			LastSide:       string(b.LastSide),
		})
	}

	if err := w.writeParquet(path, new(BarRecord), rows); err != nil {
		return "", err
	}
	w.log.WithFields(logger.Fields{
		"symbol": symbol,
		"market": string(market),
		"bars":   len(bars),
		"path":   path,
	}).Info("bar series written")
	return path, nil
}

// WriteOrders persists the run's order history and returns the local
// file path.
func (w *ArtifactWriter) WriteOrders(orders []models.Order) (string, error) {
	name := fmt.Sprintf("%s_orders.parquet", w.runID)
	path := filepath.Join(w.cfg.OutputDir, name)

	rows := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, OrderRecord{
			RunID:         w.runID,
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Side:          string(o.Side),
			PositionSide:  string(o.PositionSide),
			Type:          string(o.Type),
			Price:         o.Price.InexactFloat64(),
			Quantity:      o.Quantity.InexactFloat64(),
			Status:        string(o.Status),
			Timestamp:     o.Timestamp.UnixMilli(),
		})
	}

	if err := w.writeParquet(path, new(OrderRecord), rows); err != nil {
		return "", err
	}
	w.log.WithFields(logger.Fields{
		"orders": len(orders),
		"path":   path,
	}).Info("order history written")
	return path, nil
}

// writeParquet writes rows to a snappy-compressed local parquet file
// and mirrors the file to S3 when enabled.
func (w *ArtifactWriter) writeParquet(path string, schema interface{}, rows []interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create parquet file %s: %w", path, err)
	}
	pw, err := writer.NewParquetWriter(fw, schema, 1)
	if err != nil {
		fw.Close()
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			fw.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finalize parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet file: %w", err)
	}
	logger.IncrementRowsWritten(len(rows))

	if w.s3 != nil {
		key := filepath.ToSlash(filepath.Join(w.cfg.S3.Prefix, w.runID, filepath.Base(path)))
		if err := w.s3.UploadFile(key, path); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
	}
	return nil
}
