package importer

import (
	"fmt"
	"io"
	"strings"
	"time"

	"smart-budget-planner/internal/dateutils"
	"smart-budget-planner/internal/models"

	"gopkg.in/xmlpath.v2"
)

var (
	camtStatement   = xmlpath.MustCompile("//BkToCstmrStmt/Stmt")
	camtEntry       = xmlpath.MustCompile("//BkToCstmrStmt/Stmt/Ntry")
	camtAmount      = xmlpath.MustCompile("Amt")
	camtCdtDbtInd   = xmlpath.MustCompile("CdtDbtInd")
	camtBookingDate = xmlpath.MustCompile("BookgDt/Dt")
	camtBookingTime = xmlpath.MustCompile("BookgDt/DtTm")
	camtValueDate   = xmlpath.MustCompile("ValDt/Dt")
	camtReference   = xmlpath.MustCompile("AcctSvcrRef")
	camtRemittance  = xmlpath.MustCompile("NtryDtls/TxDtls/RmtInf/Ustrd")
	camtEntryInfo   = xmlpath.MustCompile("AddtlNtryInf")
)

const (
	camtDebit  = "DBIT"
	camtCredit = "CRDT"
)

// CAMTOptions controls how CAMT.053 entries become transactions.
type CAMTOptions struct {
	// IncludeCredits imports CRDT entries as negative amounts. By default
	// only debits (spending) are imported, as positive amounts.
	IncludeCredits bool
}

// ParseCAMT reads booked entries from a CAMT.053 bank statement.
func ParseCAMT(r io.Reader, opts CAMTOptions) ([]models.Transaction, error) {
	root, err := xmlpath.Parse(r)
	if err != nil {
		return nil, &FormatError{Format: FormatCAMT, Msg: "not well-formed XML", Err: err}
	}
	if iter := camtStatement.Iter(root); !iter.Next() {
		return nil, &FormatError{Format: FormatCAMT, Msg: "no BkToCstmrStmt/Stmt element"}
	}

	var out []models.Transaction
	iter := camtEntry.Iter(root)
	for n := 1; iter.Next(); n++ {
		entry := iter.Node()

		indicator := strings.TrimSpace(value(camtCdtDbtInd, entry))
		if indicator == camtCredit && !opts.IncludeCredits {
			continue
		}

		amountStr := value(camtAmount, entry)
		amount, err := ParseAmount(amountStr)
		if err != nil {
			return nil, &FormatError{Format: FormatCAMT, Msg: fmt.Sprintf("entry %d: invalid amount", n), Err: err}
		}

		ts, err := entryDate(entry)
		if err != nil {
			return nil, &FormatError{Format: FormatCAMT, Msg: fmt.Sprintf("entry %d: invalid booking date", n), Err: err}
		}

		txType := "expense"
		if indicator == camtCredit {
			amount = amount.Neg()
			txType = "income"
		}

		description := cleanText(value(camtRemittance, entry))
		if description == "" {
			description = cleanText(value(camtEntryInfo, entry))
		}

		out = append(out, models.Transaction{
			ID:          strings.TrimSpace(value(camtReference, entry)),
			Amount:      amount,
			Timestamp:   ts,
			Description: description,
			Type:        txType,
		})
	}
	return out, nil
}

func entryDate(entry *xmlpath.Node) (time.Time, error) {
	for _, p := range []*xmlpath.Path{camtBookingDate, camtBookingTime, camtValueDate} {
		if s := strings.TrimSpace(value(p, entry)); s != "" {
			t, _, err := dateutils.ParseDate(s)
			return t, err
		}
	}
	return time.Time{}, fmt.Errorf("missing booking date")
}

func value(p *xmlpath.Path, node *xmlpath.Node) string {
	s, _ := p.String(node)
	return s
}

func cleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
