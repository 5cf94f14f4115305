package registry

// Portal modules in display order. Keys are stable identifiers referenced by
// plan feature lists (with the mod_ prefix) and stored override maps.
var modules = []Module{
	{Key: "dashboard", Name: "Dashboard", NameAr: "لوحة التحكم", Category: "core", Route: "/portal", AlwaysVisible: true},
	{Key: "profile", Name: "My Profile", NameAr: "ملفي الشخصي", Category: "core", Route: "/portal/profile", AlwaysVisible: true},
	{Key: "support", Name: "Support", NameAr: "الدعم", Category: "core", Route: "/portal/support", AlwaysVisible: true},
	{Key: "treatment", Name: "Treatment Plan", NameAr: "خطة العلاج", Category: "clinical", Route: "/portal/treatment"},
	{Key: "appointments", Name: "Appointments", NameAr: "المواعيد", Category: "clinical", Route: "/portal/appointments"},
	{Key: "records", Name: "Medical Records", NameAr: "السجلات الطبية", Category: "clinical", Route: "/portal/records"},
	{Key: "clinical_notes", Name: "Clinical Notes", NameAr: "الملاحظات السريرية", Category: "clinical", Route: "/portal/notes"},
	{Key: "documents", Name: "Documents", NameAr: "المستندات", Category: "clinical", Route: "/portal/documents"},
	{Key: "screening", Name: "Screening", NameAr: "الفحص الأولي", Category: "clinical", Route: "/portal/screening"},
	{Key: "exercises", Name: "Exercise Library", NameAr: "مكتبة التمارين", Category: "wellness", Route: "/portal/exercises"},
	{Key: "journey", Name: "My Journey", NameAr: "رحلتي", Category: "wellness", Route: "/portal/journey"},
	{Key: "messages", Name: "Messages", NameAr: "الرسائل", Category: "engagement", Route: "/portal/messages"},
	{Key: "billing", Name: "Billing", NameAr: "الفواتير", Category: "billing", Route: "/portal/billing"},
	{Key: "scans", Name: "Body Scans", NameAr: "المسح الجسدي", Category: "clinical", Route: "/portal/scans"},
}
