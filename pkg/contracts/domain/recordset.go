package domain

// RecordSet is an ordered collection of records together with the audit
// trail and rejected rows accumulated over its cleaning history. Order is
// preserved across stages; rejection moves a record out of Records and
// into Rejected without disturbing the order of survivors.
type RecordSet struct {
	Records  []Record      `json:"records"`
	Audit    []AuditEntry  `json:"audit,omitempty"`
	Rejected []RejectedRow `json:"rejected,omitempty"`
}

// NewRecordSet builds a record set over the given records.
func NewRecordSet(records ...Record) *RecordSet {
	return &RecordSet{Records: records}
}

// Len returns the number of live records.
func (rs *RecordSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// Append adds a record to the end of the set.
func (rs *RecordSet) Append(r Record) {
	rs.Records = append(rs.Records, r)
}

// Reject moves a record into the rejected list with a machine-readable
// reason. The caller removes it from Records.
func (rs *RecordSet) Reject(r Record, reason string) {
	rs.Rejected = append(rs.Rejected, RejectedRow{
		SourceRow:     r.SourceRow,
		TransactionID: r.TransactionID,
		Reason:        reason,
		Fields:        r.FieldMap(),
	})
}

// RejectRaw records a row that never parsed into a Record.
func (rs *RecordSet) RejectRaw(sourceRow int, fields map[string]string, reason string) {
	rs.Rejected = append(rs.Rejected, RejectedRow{
		SourceRow: sourceRow,
		Reason:    reason,
		Fields:    fields,
	})
}

// AppendAudit appends audit entries in order.
func (rs *RecordSet) AppendAudit(entries ...AuditEntry) {
	rs.Audit = append(rs.Audit, entries...)
}

// Clone returns a deep copy of the set, including audit and rejections.
func (rs *RecordSet) Clone() *RecordSet {
	if rs == nil {
		return nil
	}
	out := &RecordSet{}
	if rs.Records != nil {
		out.Records = make([]Record, len(rs.Records))
		for i, r := range rs.Records {
			out.Records[i] = r.Clone()
		}
	}
	if rs.Audit != nil {
		out.Audit = append([]AuditEntry(nil), rs.Audit...)
	}
	if rs.Rejected != nil {
		out.Rejected = make([]RejectedRow, len(rs.Rejected))
		for i, rej := range rs.Rejected {
			out.Rejected[i] = rej.Clone()
		}
	}
	return out
}

// RejectedRow is a fatally rejected input row kept for reporting. Fields
// holds the row's last known values keyed by column name.
type RejectedRow struct {
	SourceRow     int               `json:"source_row"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Reason        string            `json:"reason"`
	Fields        map[string]string `json:"fields,omitempty"`
}

// Clone returns a deep copy of the rejected row.
func (rr RejectedRow) Clone() RejectedRow {
	out := rr
	if rr.Fields != nil {
		out.Fields = make(map[string]string, len(rr.Fields))
		for k, v := range rr.Fields {
			out.Fields[k] = v
		}
	}
	return out
}
