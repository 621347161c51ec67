package aggregation

import (
	"errors"
	"fmt"

	"oee-monitor/internal/domain/oee"
)

// ErrRunFailed 表示批次在逐設備迴圈之外發生無法復原的錯誤（例如無法列出設備）。
var ErrRunFailed = errors.New("aggregation run failed")

// ErrBackfillRange 表示回補區間不合法或超過上限。
var ErrBackfillRange = errors.New("invalid backfill range")

// FetchError 為單一設備 / 班別讀取資料失敗；該組合會被略過，批次繼續。
type FetchError struct {
	MachineID string
	Shift     oee.Shift
	Op        string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s machine=%s shift=%s: %v", e.Op, e.MachineID, e.Shift, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError 檢查錯誤是否為單一組合的讀取失敗。
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
