package http

import (
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 页面支持的语言，顺序即匹配优先级
var supportedLanguages = []language.Tag{language.Chinese, language.English}

var languageMatcher = language.NewMatcher(supportedLanguages)

// 英文文本作为消息键，中文为页面默认语言
var zhMessages = [][2]string{
	{"Medical Cost Prediction", "医疗费用预测"},
	{"Navigation", "导航"},
	{"Introduction", "简介"},
	{"Predict medical cost", "预测医疗费用"},
	{"Click to predict medical costs", "单击预测医疗费用"},
	{"Welcome!", "欢迎使用！"},
	{"Medical cost prediction application", "医疗费用预测应用"},
	{"This application uses a machine learning model to predict medical costs, providing a reference for insurance pricing.", "这个应用利用机器学习模型来预测医疗费用，为保险公司的保险定价提供价值参考。"},
	{"Background", "背景介绍"},
	{"Goal: help insurers price products sensibly and control risk.", "开发目标：帮助保险公司合理定价保险产品，控制风险。"},
	{"Algorithm: a random forest regression model trained on historical medical costs.", "模型算法：利用随机森林回归算法训练医疗费用预测模型。"},
	{"User guide", "使用指南"},
	{"Accurate and complete information about the insured gives a more accurate prediction.", "输入准确完整的被保险人信息，可以得到更准确的费用预测。"},
	{"The prediction is an important reference for pricing, but decisions still need care.", "预测结果可以作为保险定价的重要参考，但需审慎决策。"},
	{"Contact technical support with any questions: %s", "有任何问题欢迎联系我们的技术支持。技术支持：%s"},
	{"Instructions", "使用说明"},
	{"Input: enter the personal information of the insured below.", "输入信息：在下面输入被保险人的个人信息，疾病信息等。"},
	{"Prediction: the application predicts the future medical expenses of the insured.", "费用预测：应用会预测被保险人的未来医疗费用支出。"},
	{"Age", "年龄"},
	{"Sex", "性别"},
	{"Male", "男性"},
	{"Female", "女性"},
	{"BMI", "BMI"},
	{"Number of children", "子女数量"},
	{"Smoker", "是否吸烟"},
	{"Yes", "是"},
	{"No", "否"},
	{"Region", "区域"},
	{"Southeast", "东南部"},
	{"Southwest", "西南部"},
	{"Northeast", "东北部"},
	{"Northwest", "西北部"},
	{"Predict cost", "预测费用"},
	{"Predicted medical cost for this customer: %s", "根据您输入的数据，预测该客户的医疗费用是：%s"},
	{"Model file not found, make sure %s is at the correct path", "模型文件未找到，请确保%s在正确的路径下"},
	{"Model could not be loaded: %s", "模型加载失败：%s"},
	{"Error during prediction: %s", "预测过程中出现错误: %s"},
	{"Please check that the input data matches the model features", "请检查输入数据和模型特征是否匹配"},
	{"Invalid input: %s", "输入有误：%s"},
}

func init() {
	for _, m := range zhMessages {
		message.SetString(language.Chinese, m[0], m[1])
		message.SetString(language.English, m[0], m[0])
	}
}

// ParseLanguage 解析配置中的语言，未知语言回退到中文
func ParseLanguage(s string) language.Tag {
	_, index, confidence := languageMatcher.Match(language.Make(s))
	if confidence == language.No {
		return language.Chinese
	}
	return supportedLanguages[index]
}

// requestLanguage 依次使用 ?lang=、Accept-Language 和默认语言
func requestLanguage(r *http.Request, fallback language.Tag) language.Tag {
	candidates := make([]language.Tag, 0, 4)
	if lang := r.URL.Query().Get("lang"); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			candidates = append(candidates, tag)
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			candidates = append(candidates, tags...)
		}
	}
	if len(candidates) == 0 {
		return fallback
	}
	_, index, confidence := languageMatcher.Match(candidates...)
	if confidence == language.No {
		return fallback
	}
	return supportedLanguages[index]
}

func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
