package http

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"medcost/ml"
)

// predictRequest 预测请求，JSON接口与WebSocket共用
type predictRequest struct {
	Age      *int     `json:"age"`
	Sex      string   `json:"sex"`
	BMI      *float64 `json:"bmi"`
	Children *int     `json:"children"`
	Smoker   string   `json:"smoker"`
	Region   string   `json:"region"`
}

// toRawInput 所有字段必须存在，类别字段接受中英文标签
func (p predictRequest) toRawInput() (ml.RawInput, error) {
	var errs []error
	required := func(name string, present bool) {
		if !present {
			errs = append(errs, fmt.Errorf("%w: %s is required", ml.ErrInvalidInput, name))
		}
	}
	required("age", p.Age != nil)
	required("bmi", p.BMI != nil)
	required("children", p.Children != nil)

	sex, err := ml.ParseSex(p.Sex)
	if err != nil {
		errs = append(errs, err)
	}
	smoker, err := ml.ParseSmoker(p.Smoker)
	if err != nil {
		errs = append(errs, err)
	}
	region, err := ml.ParseRegion(p.Region)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return ml.RawInput{}, errors.Join(errs...)
	}

	raw := ml.RawInput{
		Age:      *p.Age,
		Sex:      sex,
		BMI:      *p.BMI,
		Children: *p.Children,
		Smoker:   smoker,
		Region:   region,
	}
	return raw, raw.Validate()
}

// formValues 页面表单回显的原始输入
type formValues struct {
	Age      string
	Sex      string
	BMI      string
	Children string
	Smoker   string
	Region   string
}

func defaultFormValues() formValues {
	return formValues{
		Age:      "0",
		Sex:      string(ml.SexMale),
		BMI:      "0.00",
		Children: "0",
		Smoker:   string(ml.SmokerYes),
		Region:   string(ml.RegionSoutheast),
	}
}

func readForm(values url.Values) formValues {
	get := func(key string) string { return strings.TrimSpace(values.Get(key)) }
	return formValues{
		Age:      get("age"),
		Sex:      get("sex"),
		BMI:      get("bmi"),
		Children: get("children"),
		Smoker:   get("smoker"),
		Region:   get("region"),
	}
}

// request 将表单字符串转换为预测请求，数值解析失败即视为输入错误
func (f formValues) request() (predictRequest, error) {
	var errs []error
	req := predictRequest{Sex: f.Sex, Smoker: f.Smoker, Region: f.Region}

	if f.Age != "" {
		age, err := strconv.Atoi(f.Age)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: age must be a whole number, got %q", ml.ErrInvalidInput, f.Age))
		} else {
			req.Age = &age
		}
	}
	if f.BMI != "" {
		bmi, err := strconv.ParseFloat(f.BMI, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: bmi must be a number, got %q", ml.ErrInvalidInput, f.BMI))
		} else {
			req.BMI = &bmi
		}
	}
	if f.Children != "" {
		children, err := strconv.Atoi(f.Children)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: children must be a whole number, got %q", ml.ErrInvalidInput, f.Children))
		} else {
			req.Children = &children
		}
	}
	return req, errors.Join(errs...)
}

func (f formValues) rawInput() (ml.RawInput, error) {
	req, err := f.request()
	if err != nil {
		return ml.RawInput{}, err
	}
	return req.toRawInput()
}
