package deedmarket

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/deedlabs/deedmarket/schema"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

func (s *Deedmarket) runJobs() {
	s.scheduler.Every(1).Minute().SingletonMode().Do(s.updateMarketMetrics)
	s.scheduler.Every(30).Seconds().SingletonMode().Do(s.publishTradeReceipts)
	s.scheduler.Every(10).Minute().SingletonMode().Do(s.updateDailyStatistics)

	s.scheduler.StartAsync()
}

// updateMarketMetrics resyncs the active listings gauge from the wdb mirror,
// correcting any drift from missed mirror writes.
func (s *Deedmarket) updateMarketMetrics() {
	count, err := s.wdb.CountListingsByStatus(schema.ListingActive)
	if err != nil {
		log.Error("s.wdb.CountListingsByStatus(active)", "err", err)
		return
	}
	metricSetActiveListings(count)
}

// publishTradeReceipts pushes unpublished receipts to the kafka sink.
func (s *Deedmarket) publishTradeReceipts() {
	if !s.KafkaOn {
		return
	}
	receipts, err := s.wdb.GetUnpublishedReceipts(200)
	if err != nil {
		log.Error("s.wdb.GetUnpublishedReceipts(200)", "err", err)
		return
	}
	if len(receipts) == 0 {
		return
	}

	var wg sync.WaitGroup
	p, _ := ants.NewPoolWithFunc(10, func(i interface{}) {
		defer wg.Done()
		receipt := i.(schema.TradeReceipt)
		if err := s.publishReceipt(receipt); err != nil {
			log.Error("publishReceipt", "err", err, "receiptId", receipt.ReceiptID)
			if err := s.wdb.UpdateReceiptPublish(receipt.ReceiptID, schema.PublishErr, err.Error()); err != nil {
				log.Error("s.wdb.UpdateReceiptPublish(publishErr)", "err", err, "receiptId", receipt.ReceiptID)
			}
			return
		}
		if err := s.wdb.UpdateReceiptPublish(receipt.ReceiptID, schema.Published, ""); err != nil {
			log.Error("s.wdb.UpdateReceiptPublish(published)", "err", err, "receiptId", receipt.ReceiptID)
		}
	})
	defer p.Release()

	for _, receipt := range receipts {
		wg.Add(1)
		_ = p.Invoke(receipt)
	}
	wg.Wait()
}

func (s *Deedmarket) publishReceipt(receipt schema.TradeReceipt) error {
	lst, err := s.store.LoadListing(receipt.ListingID)
	if err != nil {
		return err
	}
	info := schema.KafkaTradeInfo{
		ReceiptID:    receipt.ReceiptID,
		ListingID:    receipt.ListingID,
		PropertyID:   receipt.PropertyID,
		Buyer:        receipt.Buyer,
		Seller:       lst.Seller.Hex(),
		Quantity:     receipt.Quantity,
		Payment:      receipt.Payment,
		FundReceiver: receipt.FundReceiver,
		Timestamp:    receipt.CreatedAt.Unix(),
	}
	body, err := json.Marshal(&info)
	if err != nil {
		return err
	}
	return s.tradeWriter.Write(body)
}

// updateDailyStatistics aggregates trade receipts into one row per finished
// day, catching up from the last aggregated date.
func (s *Deedmarket) updateDailyStatistics() {
	last, err := s.wdb.GetLastStatisticDate()
	if err != nil {
		log.Error("s.wdb.GetLastStatisticDate()", "err", err)
		return
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	day := last.Add(24 * time.Hour)
	if last.IsZero() {
		day = today.Add(-30 * 24 * time.Hour) // backfill window on first run
	}

	for ; day.Before(today); day = day.Add(24 * time.Hour) {
		receipts, err := s.wdb.GetReceiptsByTimeRange(day, day.Add(24*time.Hour))
		if err != nil {
			log.Error("s.wdb.GetReceiptsByTimeRange(day)", "err", err, "day", day)
			return
		}

		volume := decimal.Zero
		properties := make(map[string]interface{})
		for _, receipt := range receipts {
			payment, err := decimal.NewFromString(receipt.Payment)
			if err != nil {
				log.Error("bad payment amount on receipt", "err", err, "receiptId", receipt.ReceiptID)
				continue
			}
			volume = volume.Add(payment)
			key := strconv.FormatUint(receipt.PropertyID, 10)
			traded, _ := properties[key].(uint64)
			properties[key] = traded + receipt.Quantity
		}

		stat := schema.DailyStatistic{
			Date:       day,
			Trades:     int64(len(receipts)),
			Volume:     volume.String(),
			Properties: properties,
		}
		if err := s.wdb.InsertDailyStatistic(stat); err != nil {
			log.Error("s.wdb.InsertDailyStatistic(stat)", "err", err, "day", day)
			return
		}
	}
}
