package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidDate 日期无法解析（CalendarError）
var ErrInvalidDate = errors.New("invalid date")

// DataSourceError 数据访问层失败
// 与"无数据"严格区分：上游 UI 对它显示 unknown，而不是 0 负载或放行。
type DataSourceError struct {
	Op  string
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source failure in %s: %v", e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

func sourceErr(op string, err error) error {
	return &DataSourceError{Op: op, Err: err}
}

// IsDataSourceError 判断是否为数据源失败
func IsDataSourceError(err error) bool {
	var dse *DataSourceError
	return errors.As(err, &dse)
}
