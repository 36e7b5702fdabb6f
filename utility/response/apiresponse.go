package response

// ResponseObj ... envelope every operator endpoint answers with
type ResponseObj struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseResultObj ... envelope carrying a payload
type ResponseResultObj struct {
	ResponseObj
	Data interface{} `json:"data"`
}

// ResponseValidateObj ... envelope of a rejected request, one entry per failed field
type ResponseValidateObj struct {
	ResponseObj
	ValidationErrors []map[string]string `json:"validationErrors"`
}

// New ...
func New() ResponseResultObj {
	return ResponseResultObj{}
}

// PlainSuccess ...
func (res ResponseResultObj) PlainSuccess(code string, msg string) ResponseObj {
	return ResponseObj{Success: true, Code: code, Message: msg}
}

// Successful ... success envelope with data
func (res ResponseResultObj) Successful(code string, msg string, data interface{}) ResponseResultObj {
	return ResponseResultObj{ResponseObj: ResponseObj{Success: true, Code: code, Message: msg}, Data: data}
}

// PlainError ... code is the error type the caller branches on
func (res ResponseResultObj) PlainError(code string, err string) ResponseObj {
	return ResponseObj{Success: false, Code: code, Message: err}
}

// Error ... error envelope with the offending input echoed back as data
func (res ResponseResultObj) Error(code string, err string, data interface{}) ResponseResultObj {
	return ResponseResultObj{ResponseObj: ResponseObj{Success: false, Code: code, Message: err}, Data: data}
}

// ValidateError ...
func (res ResponseResultObj) ValidateError(code string, err string, errors []map[string]string) ResponseValidateObj {
	return ResponseValidateObj{ResponseObj: ResponseObj{Success: false, Code: code, Message: err}, ValidationErrors: errors}
}
