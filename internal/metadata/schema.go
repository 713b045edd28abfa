// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metadata

// Field names of the archival metadata schema.
const (
	FieldFondsNumber      = "全宗号"
	FieldArchiveCode      = "档案馆代码"
	FieldArchiveName      = "档案馆名称"
	FieldOutsourcer       = "外包单位名称"
	FieldArchivalYear     = "归档年度"
	FieldCategoryCode     = "实体分类号"
	FieldCategoryName     = "实体分类名称"
	FieldRetentionPeriod  = "保管期限"
	FieldTitle            = "题名"
	FieldFileNumber       = "文件编号"
	FieldResponsibleParty = "责任者"
	FieldFilingUnitName   = "立档单位名称"
	FieldFormationTime    = "文件形成时间"
	FieldSecurityLevel    = "密级"
	FieldSecurityPeriod   = "保密期限"
	FieldOpenStatus       = "开放状态"
	FieldDeferredReason   = "延期开放理由"
	FieldPageCount        = "页数"
	FieldDigitizedTime    = "数字化时间"
	FieldArchiveFolder    = "档案文件夹"
	FieldRemarks          = "备注"
)

// SchemaField describes one field of the extraction schema.
type SchemaField struct {
	Name        string
	Description string
}

// Schema lists the fields in export order together with the description
// handed to the extraction step.
var Schema = []SchemaField{
	{FieldFondsNumber, "全宗号，一律为null"},
	{FieldArchiveCode, "档案馆代码，一律为null"},
	{FieldArchiveName, "档案馆名称，一律为null"},
	{FieldOutsourcer, "外包单位名称，一律为null"},
	{FieldArchivalYear, "归档年度，四位数字年份"},
	{FieldCategoryCode, "实体分类号：2020年及以后DQL/ZHL/YWL，2020年以前001/002/003"},
	{FieldCategoryName, "实体分类名称：党群类/综合类/业务类"},
	{FieldRetentionPeriod, "保管期限：永久/30年/10年"},
	{FieldTitle, "题名，文件正式标题"},
	{FieldFileNumber, "文件编号（发文字号），无则为null"},
	{FieldResponsibleParty, "责任者，落款盖章单位"},
	{FieldFilingUnitName, "立档单位名称，与责任者一致"},
	{FieldFormationTime, "文件形成时间，格式YYYYMMDD"},
	{FieldSecurityLevel, "密级：非涉密/内部/秘密/机密/绝密，无标注为null"},
	{FieldSecurityPeriod, "保密期限：1年/5年/10年，无标注为null"},
	{FieldOpenStatus, "开放状态：开放/控制"},
	{FieldDeferredReason, "延期开放理由：工作秘密/个人隐私/商业秘密/负面信息，开放时为null"},
	{FieldPageCount, "页数"},
	{FieldDigitizedTime, "数字化时间，格式YYYY年M月"},
	{FieldArchiveFolder, "档案文件夹名称"},
	{FieldRemarks, "备注"},
}

var schemaIndex = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Schema))
	for _, f := range Schema {
		m[f.Name] = struct{}{}
	}
	return m
}()

// InSchema reports whether name is a schema field.
func InSchema(name string) bool {
	_, ok := schemaIndex[name]
	return ok
}

// FieldNames returns the schema field names in export order.
func FieldNames() []string {
	names := make([]string, len(Schema))
	for i, f := range Schema {
		names[i] = f.Name
	}
	return names
}
